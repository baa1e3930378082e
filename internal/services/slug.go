package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"ficehub/internal/config"
	"ficehub/internal/lock"
	"ficehub/internal/metrics"
	"ficehub/internal/store"
	"ficehub/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Namespace is a table whose rows carry a unique slug column of Width bytes.
type Namespace struct {
	Name  string
	Table string
	Width int
}

var (
	NamespaceUsers      = Namespace{Name: "users", Table: "users", Width: 100}
	NamespaceCategories = Namespace{Name: "categories", Table: "categories", Width: 100}
	NamespaceTags       = Namespace{Name: "tags", Table: "tags", Width: 50}
	NamespacePosts      = Namespace{Name: "posts", Table: "posts", Width: 255}
)

// SlugAssigner hands out unique slugs. Probing and claiming are serialized per namespace;
// the unique index on the slug column catches anything the lock cannot, such as a writer
// that bypasses the assigner.
type SlugAssigner struct {
	store       *store.Store
	locker      lock.Locker
	maxSuffix   int
	maxAttempts int
	logger      *zap.Logger
}

func NewSlugAssigner(st *store.Store, locker lock.Locker, cfg config.Slug, logger *zap.Logger) *SlugAssigner {
	return &SlugAssigner{
		store:       st,
		locker:      locker,
		maxSuffix:   cfg.MaxSuffix,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger.Named("slug"),
	}
}

// Assign derives a slug from name, picks the first free candidate in ns and passes it to
// claim, which must insert the owning row. If claim hits a unique violation on the slug the
// next candidate is tried. Any other claim error is returned unchanged.
func (a *SlugAssigner) Assign(ctx context.Context, ns Namespace, name string, claim func(slug string) error) (string, error) {
	base := utils.TruncateSlug(utils.Slugify(name), ns.Width)

	unlock, err := a.locker.Lock(ctx, "slug:"+ns.Name)
	if err != nil {
		return "", storeError("lock "+ns.Name+" slugs", err)
	}
	defer unlock()

	var (
		collided string
		claimErr error
	)
	for range a.maxAttempts {
		taken, err := a.taken(ctx, ns, base)
		if err != nil {
			return "", storeError("list "+ns.Name+" slugs", err)
		}
		if collided != "" && !slices.Contains(taken, collided) {
			// the violation was on another unique column
			return "", claimErr
		}

		slug, err := a.nextFree(base, ns.Width, taken)
		if err != nil {
			return "", fmt.Errorf("assign %s slug for %q: %w", ns.Name, name, err)
		}

		claimErr = claim(slug)
		if claimErr == nil {
			return slug, nil
		}
		if !errors.Is(claimErr, gorm.ErrDuplicatedKey) {
			return "", claimErr
		}

		metrics.SlugCollisions.WithLabelValues(ns.Name).Inc()
		a.logger.Debug("Slug claimed concurrently, retrying",
			zap.String("namespace", ns.Name),
			zap.String("slug", slug))
		collided = slug
	}

	return "", fmt.Errorf("assign %s slug for %q after %d attempts: %w", ns.Name, name, a.maxAttempts, ErrConcurrencyConflict)
}

// taken lists the existing slugs any candidate for base could collide with.
func (a *SlugAssigner) taken(ctx context.Context, ns Namespace, base string) ([]string, error) {
	if len(base)+1+len(strconv.Itoa(a.maxSuffix)) <= ns.Width {
		return a.store.TakenSlugs(ctx, ns.Table, base)
	}
	// suffixed candidates may shorten base, so widen the lookup to the shortest stem
	stem := utils.TruncateSlug(base, ns.Width-1-len(strconv.Itoa(a.maxSuffix)))
	return a.store.SlugsWithPrefix(ctx, ns.Table, stem)
}

// nextFree returns base if unused, else the lowest unused base-N for N >= 2.
func (a *SlugAssigner) nextFree(base string, width int, taken []string) (string, error) {
	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for n := 2; n <= a.maxSuffix; n++ {
		suffix := "-" + strconv.Itoa(n)
		candidate := utils.TruncateSlug(base, width-len(suffix)) + suffix
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: suffixes of %q exhausted at %d", ErrDuplicateIdentifier, base, a.maxSuffix)
}
