package repository

import (
	"context"
	"errors"

	"github.com/kjstillabower/movie-service/internal/models"
)

var (
	// ErrNotFound is returned when no movie has the requested id.
	ErrNotFound = errors.New("movie not found")
	// ErrDuplicateID is returned by Create when the id is already taken.
	ErrDuplicateID = errors.New("movie id already exists")
)

// Repository persists and retrieves movies. Implementations return copies;
// callers cannot change stored state through a returned value.
type Repository interface {
	GetAll(ctx context.Context) ([]models.Movie, error)
	GetByID(ctx context.Context, id int64) (models.Movie, error)
	Create(ctx context.Context, movie models.Movie) (models.Movie, error)
	Update(ctx context.Context, movie models.Movie) (models.Movie, error)
	Delete(ctx context.Context, movie models.Movie) error
}

// Pinger is implemented by backends that can report reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
