package store_test

import (
	"testing"
	"time"

	"ficehub/internal/dbretry"
	"ficehub/internal/models"
	"ficehub/internal/store"
	"ficehub/internal/testutil"

	"gorm.io/gorm"
)

var testOpts = dbretry.Options{
	Timeout:         5 * time.Second,
	MaxRetries:      1,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
	MaxElapsedTime:  time.Second,
}

type fixture struct {
	db    *gorm.DB
	store *store.Store
	alice models.User
	bob   models.User
	posts map[string]models.Post
}

// newFixture seeds four posts with distinct creation times:
//
//	hello  "Hello Go"   general  [go]       views 5  score 1
//	rust   "Rust tips"  lectures [rust go]  views 10 score 3
//	db     "Databases"  general  [sql]      views 2  score -1
//	misc   "Misc"       projects []         views 3  score 3
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	f := &fixture{
		db:    gdb,
		store: store.New(gdb, testOpts),
		alice: testutil.User(t, gdb, "alice"),
		bob:   testutil.User(t, gdb, "bob"),
		posts: map[string]models.Post{},
	}

	general := testutil.Category(t, gdb, "general")
	lectures := testutil.Category(t, gdb, "lectures")
	projects := testutil.Category(t, gdb, "projects")
	goTag := testutil.Tag(t, gdb, "go")
	rustTag := testutil.Tag(t, gdb, "rust")
	sqlTag := testutil.Tag(t, gdb, "sql")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	add := func(key, name, body string, author models.User, cat models.Category, tags []models.Tag, views, score, minutes int) {
		f.posts[key] = testutil.Post(t, gdb, models.Post{
			Slug:       key,
			AuthorID:   author.ID,
			CategoryID: cat.ID,
			Tags:       tags,
			Name:       name,
			Body:       body,
			Views:      views,
			Score:      score,
			CreatedAt:  base.Add(time.Duration(minutes) * time.Minute),
		})
	}
	add("hello", "Hello Go", "intro", f.alice, general, []models.Tag{goTag}, 5, 1, 0)
	add("rust", "Rust tips", "ownership is 100% safe", f.bob, lectures, []models.Tag{rustTag, goTag}, 10, 3, 1)
	add("db", "Databases", "plain text", f.alice, general, []models.Tag{sqlTag}, 2, -1, 2)
	add("misc", "Misc", "nothing here", f.bob, projects, nil, 3, 3, 3)
	return f
}

func slugs(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}
