// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"ficehub/internal/config"
	"ficehub/internal/db"
	"ficehub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewDB returns a migrated, seeded in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.Database{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	gdb, err := db.Open(cfg, zap.NewNop(), false)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb, zap.NewNop()))
	return gdb
}

// Group returns the first seeded group.
func Group(t *testing.T, gdb *gorm.DB) models.Group {
	t.Helper()
	var g models.Group
	require.NoError(t, gdb.Order("id ASC").First(&g).Error)
	return g
}

// Category returns the seeded category with the given slug.
func Category(t *testing.T, gdb *gorm.DB, slug string) models.Category {
	t.Helper()
	var c models.Category
	require.NoError(t, gdb.Where("slug = ?", slug).First(&c).Error)
	return c
}

// User inserts a user whose username and slug are both name.
func User(t *testing.T, gdb *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Username: name, Slug: name, GroupID: Group(t, gdb).ID}
	require.NoError(t, gdb.Omit("Group", "Profile").Create(&u).Error)
	return u
}

// Tag inserts a tag whose name and slug are both name.
func Tag(t *testing.T, gdb *gorm.DB, name string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: name}
	require.NoError(t, gdb.Create(&tag).Error)
	return tag
}

// Post inserts p as given; zero Views and Score fall back to the column defaults.
func Post(t *testing.T, gdb *gorm.DB, p models.Post) models.Post {
	t.Helper()
	if p.Slug == "" {
		p.Slug = uuid.NewString()
	}
	if p.Body == "" {
		p.Body = p.Name
	}
	require.NoError(t, gdb.Omit("Author", "Category", "Tags.*").Create(&p).Error)
	return p
}

// Comment inserts c as given.
func Comment(t *testing.T, gdb *gorm.DB, c models.Comment) models.Comment {
	t.Helper()
	if c.Body == "" {
		c.Body = "comment"
	}
	require.NoError(t, gdb.Omit("Post", "Author", "Parent").Create(&c).Error)
	return c
}
