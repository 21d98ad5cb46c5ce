package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/movie-service/internal/models"
	"github.com/kjstillabower/movie-service/internal/observability"
	"github.com/kjstillabower/movie-service/internal/repository"
)

// CachedRepository decorates a repository.Repository with a per-id cache.
// GetByID is read-through; Create and Update write through after the backing
// call succeeds; Delete invalidates. GetAll always reaches the backing store.
// Cache failures are logged and counted but never returned.
//
// Writes bump gen so a read-through fill that started before a concurrent
// Update or Delete is dropped instead of re-caching the stale row.
type CachedRepository struct {
	next  repository.Repository
	cache Cache
	ttl   time.Duration

	genMu sync.RWMutex
	gen   uint64
}

var _ repository.Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps next with c. Entries expire after ttl.
func NewCachedRepository(next repository.Repository, c Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, cache: c, ttl: ttl}
}

func (r *CachedRepository) GetAll(ctx context.Context) ([]models.Movie, error) {
	return r.next.GetAll(ctx)
}

func (r *CachedRepository) GetByID(ctx context.Context, id int64) (models.Movie, error) {
	logger := observability.LoggerFromContext(ctx)

	cached, ok, err := r.cache.Get(ctx, id)
	switch {
	case err != nil:
		r.cacheFailed(logger, "get", id, err)
	case ok:
		observability.CacheHitsTotal.Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.Int64("movie_id", id))
		}
		return cached, nil
	default:
		observability.CacheMissesTotal.Inc()
	}

	r.genMu.RLock()
	gen := r.gen
	r.genMu.RUnlock()

	movie, err := r.next.GetByID(ctx, id)
	if err != nil {
		return models.Movie{}, err
	}
	r.fill(ctx, logger, movie, gen)
	return movie, nil
}

func (r *CachedRepository) Create(ctx context.Context, movie models.Movie) (models.Movie, error) {
	created, err := r.next.Create(ctx, movie)
	if err != nil {
		return models.Movie{}, err
	}
	r.store(ctx, observability.LoggerFromContext(ctx), created)
	return created, nil
}

func (r *CachedRepository) Update(ctx context.Context, movie models.Movie) (models.Movie, error) {
	updated, err := r.next.Update(ctx, movie)
	r.bump()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.evict(ctx, observability.LoggerFromContext(ctx), movie.ID)
		}
		return models.Movie{}, err
	}
	r.store(ctx, observability.LoggerFromContext(ctx), updated)
	return updated, nil
}

// Delete evicts the entry whether or not the backing delete succeeds.
func (r *CachedRepository) Delete(ctx context.Context, movie models.Movie) error {
	err := r.next.Delete(ctx, movie)
	r.bump()
	r.evict(ctx, observability.LoggerFromContext(ctx), movie.ID)
	return err
}

// Ping forwards to the backing repository when it supports health checks.
func (r *CachedRepository) Ping(ctx context.Context) error {
	if p, ok := r.next.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *CachedRepository) store(ctx context.Context, logger *zap.Logger, movie models.Movie) {
	if err := r.cache.Set(ctx, movie, r.ttl); err != nil {
		r.cacheFailed(logger, "set", movie.ID, err)
	}
}

// fill stores a row read from the backing store unless a write happened since
// gen was taken. The read lock is held across Set so bump waits for it.
func (r *CachedRepository) fill(ctx context.Context, logger *zap.Logger, movie models.Movie, gen uint64) {
	r.genMu.RLock()
	defer r.genMu.RUnlock()
	if r.gen != gen {
		if logger != nil {
			logger.Debug("cache fill skipped after concurrent write", zap.Int64("movie_id", movie.ID))
		}
		return
	}
	r.store(ctx, logger, movie)
}

func (r *CachedRepository) bump() {
	r.genMu.Lock()
	r.gen++
	r.genMu.Unlock()
}

func (r *CachedRepository) evict(ctx context.Context, logger *zap.Logger, id int64) {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.cacheFailed(logger, "delete", id, err)
	}
}

func (r *CachedRepository) cacheFailed(logger *zap.Logger, op string, id int64, err error) {
	observability.CacheErrorsTotal.WithLabelValues(op).Inc()
	if logger != nil {
		logger.Warn("cache "+op+" failed", zap.Int64("movie_id", id), zap.Error(err))
	}
}
