package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/movie-service/internal/models"
	"github.com/kjstillabower/movie-service/internal/observability"
	"github.com/kjstillabower/movie-service/internal/repository"
)

// MovieService forwards movie operations to a repository. It adds no business
// rules: records pass through unchanged and failures come from the repository.
type MovieService struct {
	repo repository.Repository
}

// NewMovieService creates a MovieService backed by repo.
func NewMovieService(repo repository.Repository) *MovieService {
	return &MovieService{repo: repo}
}

// GetAll returns every movie held by the repository, unfiltered.
func (s *MovieService) GetAll(ctx context.Context) ([]models.Movie, error) {
	start := time.Now()
	movies, err := s.repo.GetAll(ctx)
	s.observe(ctx, "get_all", start, err)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// GetByID returns the movie with id. Absence surfaces as an error wrapping
// repository.ErrNotFound.
func (s *MovieService) GetByID(ctx context.Context, id int64) (models.Movie, error) {
	start := time.Now()
	movie, err := s.repo.GetByID(ctx, id)
	s.observe(ctx, "get_by_id", start, err, zap.Int64("movie_id", id))
	if err != nil {
		return models.Movie{}, fmt.Errorf("get movie %d: %w", id, err)
	}
	return movie, nil
}

// Create persists movie and returns the stored record.
func (s *MovieService) Create(ctx context.Context, movie models.Movie) (models.Movie, error) {
	start := time.Now()
	created, err := s.repo.Create(ctx, movie)
	s.observe(ctx, "create", start, err, zap.Int64("movie_id", movie.ID))
	if err != nil {
		return models.Movie{}, fmt.Errorf("create movie %d: %w", movie.ID, err)
	}
	return created, nil
}

// Update replaces the record stored under movie.ID and returns it.
func (s *MovieService) Update(ctx context.Context, movie models.Movie) (models.Movie, error) {
	start := time.Now()
	updated, err := s.repo.Update(ctx, movie)
	s.observe(ctx, "update", start, err, zap.Int64("movie_id", movie.ID))
	if err != nil {
		return models.Movie{}, fmt.Errorf("update movie %d: %w", movie.ID, err)
	}
	return updated, nil
}

// Delete removes movie from the repository.
func (s *MovieService) Delete(ctx context.Context, movie models.Movie) error {
	start := time.Now()
	err := s.repo.Delete(ctx, movie)
	s.observe(ctx, "delete", start, err, zap.Int64("movie_id", movie.ID))
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", movie.ID, err)
	}
	return nil
}

func (s *MovieService) observe(ctx context.Context, op string, start time.Time, err error, fields ...zap.Field) {
	outcome := outcomeLabel(err)
	observability.ObserveRepositoryCall(op, outcome, start)

	logger := observability.LoggerFromContext(ctx)
	if logger == nil {
		return
	}
	fields = append(fields,
		zap.String("operation", op),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)))
	if outcome == "error" {
		logger.Warn("repository call failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Debug("repository call", fields...)
}

// outcomeLabel returns a stable metric label for a repository result.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrDuplicateID):
		return "duplicate"
	default:
		return "error"
	}
}
