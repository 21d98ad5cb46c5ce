package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kjstillabower/movie-service/internal/models"
)

// uniqueViolation is the SQLSTATE Postgres reports for a primary key collision.
const uniqueViolation = "23505"

// PostgresConfig holds connection pool settings for OpenPostgres.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
	PingTimeout  time.Duration
}

// OpenPostgres opens a connection pool with the lib/pq driver and verifies it
// with a ping bounded by cfg.PingTimeout (5s when unset).
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresRepository implements Repository on the movies table
// (see migrations/000001_create_movies_table.up.sql).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an open pool. The caller owns db and closes it.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, genre, release_date FROM movies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	movies := []models.Movie{}
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.ReleaseDate); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (models.Movie, error) {
	var m models.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, genre, release_date FROM movies WHERE id = $1`, id).
		Scan(&m.ID, &m.Title, &m.Genre, &m.ReleaseDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, fmt.Errorf("query movie %d: %w", id, err)
	}
	return m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, movie models.Movie) (models.Movie, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (id, title, genre, release_date) VALUES ($1, $2, $3, $4)`,
		movie.ID, movie.Title, int(movie.Genre), movie.ReleaseDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.Movie{}, ErrDuplicateID
		}
		return models.Movie{}, fmt.Errorf("insert movie %d: %w", movie.ID, err)
	}
	return movie, nil
}

func (r *PostgresRepository) Update(ctx context.Context, movie models.Movie) (models.Movie, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title = $1, genre = $2, release_date = $3 WHERE id = $4`,
		movie.Title, int(movie.Genre), movie.ReleaseDate, movie.ID)
	if err != nil {
		return models.Movie{}, fmt.Errorf("update movie %d: %w", movie.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return models.Movie{}, err
	}
	return movie, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, movie models.Movie) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, movie.ID)
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", movie.ID, err)
	}
	return expectAffected(res)
}

// Ping checks the pool can reach the database.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
