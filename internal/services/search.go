package services

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"ficehub/internal/config"
	"ficehub/internal/metrics"
	"ficehub/internal/models"
	"ficehub/internal/store"
	"ficehub/internal/utils"

	"go.uber.org/zap"
)

type (
	SearchCriteria = store.SearchCriteria
	Sort           = store.Sort
)

const (
	SortNewest       = store.SortNewest
	SortMostViewed   = store.SortMostViewed
	SortHighestRated = store.SortHighestRated
)

// ParseSort maps a query-string value to a Sort, defaulting to SortNewest.
func ParseSort(s string) Sort {
	return store.ParseSort(s)
}

// SearchService answers post searches. Results are cached per criteria until the TTL runs
// out or any content mutation calls Invalidate.
type SearchService struct {
	store  *store.Store
	cache  *utils.Cache[[]models.Post]
	limit  int
	logger *zap.Logger

	// generation is bumped by Invalidate so a search that raced a mutation does not
	// cache what it read before the mutation.
	generation atomic.Uint64
}

func NewSearchService(st *store.Store, cfg config.Search, logger *zap.Logger) (*SearchService, error) {
	s := &SearchService{
		store:  st,
		limit:  cfg.Limit,
		logger: logger.Named("search"),
	}
	if cfg.CacheSize > 0 {
		cache, err := utils.NewCache[[]models.Post](cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// Search returns the posts matching c. No match is an empty result, not an error.
func (s *SearchService) Search(ctx context.Context, c SearchCriteria) ([]models.Post, error) {
	start := time.Now()
	key := c.Key()
	gen := s.generation.Load()

	if s.cache != nil {
		if posts, ok := s.cache.Get(key); ok {
			metrics.SearchDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			return slices.Clone(posts), nil
		}
	}

	posts, err := s.store.SearchPosts(ctx, c, s.limit)
	if err != nil {
		return nil, storeError("search posts", err)
	}
	if err := s.store.FillCommentCounts(ctx, posts); err != nil {
		s.logger.Warn("Failed to count comments", zap.Error(err))
	}

	if s.cache != nil && s.generation.Load() == gen {
		s.cache.Set(key, posts)
	}
	metrics.SearchDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return slices.Clone(posts), nil
}

// Invalidate drops every cached result.
func (s *SearchService) Invalidate() {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}
