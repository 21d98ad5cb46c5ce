package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/kjstillabower/movie-service/internal/models"
)

// InMemoryRepository implements Repository with a map keyed by movie id.
// Safe for concurrent use.
type InMemoryRepository struct {
	mu     sync.RWMutex
	movies map[int64]models.Movie
}

// NewInMemoryRepository returns a repository preloaded with seed. Later entries
// win when seed repeats an id.
func NewInMemoryRepository(seed ...models.Movie) *InMemoryRepository {
	r := &InMemoryRepository{movies: make(map[int64]models.Movie, len(seed))}
	for _, m := range seed {
		r.movies[m.ID] = m
	}
	return r
}

// GetAll returns every movie ordered by ascending id.
func (r *InMemoryRepository) GetAll(ctx context.Context) ([]models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]models.Movie, 0, len(r.movies))
	for _, m := range r.movies {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return models.Movie{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.movies[id]
	if !ok {
		return models.Movie{}, ErrNotFound
	}
	return m, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, movie models.Movie) (models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return models.Movie{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.movies[movie.ID]; exists {
		return models.Movie{}, ErrDuplicateID
	}
	r.movies[movie.ID] = movie
	return movie, nil
}

// Update replaces the whole record stored under movie.ID.
func (r *InMemoryRepository) Update(ctx context.Context, movie models.Movie) (models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return models.Movie{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.movies[movie.ID]; !exists {
		return models.Movie{}, ErrNotFound
	}
	r.movies[movie.ID] = movie
	return movie, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, movie models.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.movies[movie.ID]; !exists {
		return ErrNotFound
	}
	delete(r.movies, movie.ID)
	return nil
}

// Ping always succeeds; the map cannot become unreachable.
func (r *InMemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
