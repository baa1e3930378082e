package store_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"ficehub/internal/config"
	"ficehub/internal/db"
	"ficehub/internal/models"
	"ficehub/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

// TestPostgresRowLocking runs the locked read-modify-write paths against a real PostgreSQL.
// It needs Docker and is opt-in through FICEHUB_PG_IT=1.
func TestPostgresRowLocking(t *testing.T) {
	if testing.Short() || os.Getenv("FICEHUB_PG_IT") != "1" {
		t.Skip("set FICEHUB_PG_IT=1 to run PostgreSQL integration tests")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ficehub"),
		postgres.WithUsername("ficehub"),
		postgres.WithPassword("ficehub"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := db.Open(config.Database{Driver: "postgres", DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 5, ConnLifetime: time.Minute}, zap.NewNop(), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb, zap.NewNop()))

	s := store.New(gdb, testOpts)

	var group models.Group
	require.NoError(t, gdb.First(&group).Error)
	var category models.Category
	require.NoError(t, gdb.First(&category).Error)

	author := models.User{Username: "author", Slug: "author", GroupID: group.ID}
	require.NoError(t, gdb.Omit("Group", "Profile").Create(&author).Error)
	post := models.Post{Slug: "p", Name: "p", Body: "p", AuthorID: author.ID, CategoryID: category.ID, Views: 1}
	require.NoError(t, s.CreatePost(ctx, &post))

	const voters = 20
	var wg sync.WaitGroup
	for i := range voters {
		voter := models.User{Username: "v" + string(rune('a'+i)), Slug: "v" + string(rune('a'+i)), GroupID: group.ID}
		require.NoError(t, gdb.Omit("Group", "Profile").Create(&voter).Error)
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := s.CastVote(ctx, id, models.KindPost, post.ID, 1)
			assert.NoError(t, err)
		}(voter.ID)
	}
	wg.Wait()

	got, err := s.PostBySlug(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, voters, got.Score)

	rating, err := s.RecomputeRating(ctx, author.ID, func(scores []int) float64 {
		return float64(scores[0])
	})
	require.NoError(t, err)
	assert.Equal(t, float64(voters), rating)

	found, err := s.SearchPosts(ctx, store.SearchCriteria{Text: "P", Category: category.Slug}, 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	cyrillic := models.Post{Slug: "privet", Name: "Привет Мир", Body: "x", AuthorID: author.ID, CategoryID: category.ID, Views: 1}
	require.NoError(t, s.CreatePost(ctx, &cyrillic))
	found, err = s.SearchPosts(ctx, store.SearchCriteria{Text: "ПРИВЕТ"}, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "privet", found[0].Slug)

	first := models.Comment{PostID: post.ID, AuthorID: author.ID, Body: "a"}
	second := models.Comment{PostID: post.ID, AuthorID: author.ID, Body: "b"}
	require.NoError(t, s.CreateComment(ctx, &first))
	require.NoError(t, s.CreateComment(ctx, &second))
	errs := make(chan error, 2)
	go func() { errs <- s.MoveComment(ctx, first.ID, &second.ID) }()
	go func() { errs <- s.MoveComment(ctx, second.ID, &first.ID) }()
	failed := 0
	for range 2 {
		if err := <-errs; err != nil {
			assert.ErrorIs(t, err, store.ErrParentInSubtree)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}
