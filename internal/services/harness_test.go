package services

import (
	"testing"
	"time"

	"ficehub/internal/config"
	"ficehub/internal/dbretry"
	"ficehub/internal/events"
	"ficehub/internal/lock"
	"ficehub/internal/models"
	"ficehub/internal/store"
	"ficehub/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type harness struct {
	db       *gorm.DB
	store    *store.Store
	slugs    *SlugAssigner
	rating   *RatingAggregator
	search   *SearchService
	content  *ContentService
	users    *UserService
	taxonomy *TaxonomyService
}

// newHarness wires every service over a private SQLite database. Events are delivered
// inline so ratings are current as soon as a mutation returns.
func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Store.InitialInterval = time.Millisecond
	cfg.Store.MaxInterval = time.Millisecond

	gdb := testutil.NewDB(t)
	st := store.New(gdb, dbretry.FromConfig(cfg.Store))
	locker := lock.WithWait(lock.NewLocal(), cfg.Lock.Wait)
	log := zap.NewNop()

	h := &harness{db: gdb, store: st}
	h.slugs = NewSlugAssigner(st, locker, cfg.Slug, log)
	h.rating = NewRatingAggregator(st, locker, cfg.Rating, log)

	var err error
	h.search, err = NewSearchService(st, cfg.Search, log)
	require.NoError(t, err)

	h.content = NewContentService(st, locker, h.slugs, h.search, events.Inline{Handler: h.rating}, log)
	h.users = NewUserService(st, h.slugs, log)
	h.users.bcryptCost = bcrypt.MinCost
	h.taxonomy = NewTaxonomyService(st, h.slugs, h.search, log)
	return h
}

func (h *harness) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := testutil.User(t, h.db, name)
	return &u
}

func (h *harness) admin(t *testing.T) *models.User {
	t.Helper()
	u := h.user(t, "admin")
	require.NoError(t, h.db.Model(u).Update("is_admin", true).Error)
	u.IsAdmin = true
	return u
}

func (h *harness) post(t *testing.T, author *models.User, name string, tags ...string) *models.Post {
	t.Helper()
	p, err := h.content.CreatePost(t.Context(), author, PostInput{Name: name, Body: "body of " + name, Category: "general", Tags: tags})
	require.NoError(t, err)
	return p
}

func (h *harness) rated(t *testing.T, id uint) float64 {
	t.Helper()
	var u models.User
	require.NoError(t, h.db.First(&u, id).Error)
	return u.Rating
}
