package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"ficehub/internal/config"
	"ficehub/internal/events"
	"ficehub/internal/lock"
	"ficehub/internal/metrics"
	"ficehub/internal/store"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// RatingAggregator keeps users.rating equal to the mean score of the user's posts and
// comments. Every recompute is a full replacement, so repeated or reordered triggers
// converge on the same value.
type RatingAggregator struct {
	store        *store.Store
	locker       lock.Locker
	sweepWorkers int
	logger       *zap.Logger
}

func NewRatingAggregator(st *store.Store, locker lock.Locker, cfg config.Rating, logger *zap.Logger) *RatingAggregator {
	return &RatingAggregator{
		store:        st,
		locker:       locker,
		sweepWorkers: max(cfg.SweepWorkers, 1),
		logger:       logger.Named("rating"),
	}
}

// Mean is the unweighted mean of scores, or 0 for none.
func Mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum int64
	for _, s := range scores {
		sum += int64(s)
	}
	return float64(sum) / float64(len(scores))
}

// Recompute rewrites the user's rating from the current scores and returns it.
func (r *RatingAggregator) Recompute(ctx context.Context, userID uint) (float64, error) {
	start := time.Now()
	op := fmt.Sprintf("recompute rating of user %d", userID)

	unlock, err := r.locker.Lock(ctx, "rating:"+strconv.FormatUint(uint64(userID), 10))
	if err != nil {
		metrics.RatingRecomputes.WithLabelValues("error").Inc()
		return 0, storeError(op, err)
	}
	defer unlock()

	rating, err := r.store.RecomputeRating(ctx, userID, Mean)
	metrics.RatingRecomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		err = storeError(op, err)
		if errors.Is(err, ErrNotFound) {
			metrics.RatingRecomputes.WithLabelValues("not_found").Inc()
		} else {
			metrics.RatingRecomputes.WithLabelValues("error").Inc()
		}
		return 0, err
	}

	metrics.RatingRecomputes.WithLabelValues("ok").Inc()
	r.logger.Debug("Rating recomputed", zap.Uint("userID", userID), zap.Float64("rating", rating))
	return rating, nil
}

// HandleEvent recomputes the author of the changed content.
func (r *RatingAggregator) HandleEvent(ctx context.Context, ev events.Event) error {
	_, err := r.Recompute(ctx, ev.AuthorID)
	return err
}

// RecomputeAll sweeps every user. Users that fail are logged and counted; the sweep keeps
// going and reports the joined errors at the end.
func (r *RatingAggregator) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := r.store.UserIDs(ctx)
	if err != nil {
		return 0, storeError("list users", err)
	}

	var (
		p    = pool.New().WithContext(ctx).WithMaxGoroutines(r.sweepWorkers)
		done atomic.Int64
	)
	for _, id := range ids {
		p.Go(func(ctx context.Context) error {
			if _, err := r.Recompute(ctx, id); err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				r.logger.Error("Failed to recompute rating", zap.Uint("userID", id), zap.Error(err))
				return err
			}
			done.Add(1)
			return nil
		})
	}
	err = p.Wait()

	r.logger.Info("Rating sweep finished",
		zap.Int("users", len(ids)),
		zap.Int64("recomputed", done.Load()))
	return int(done.Load()), err
}
