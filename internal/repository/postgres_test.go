package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/kjstillabower/movie-service/internal/models"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_GetAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	released := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "title", "genre", "release_date"}).
		AddRow(int64(1), "Pelicula 1", int64(0), released).
		AddRow(int64(2), "Pelicula 2", int64(3), released)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, genre, release_date FROM movies ORDER BY id`)).
		WillReturnRows(rows)

	got, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetAll() len = %d, want 2", len(got))
	}
	if got[1].Genre != models.GenreOthers {
		t.Errorf("GetAll()[1].Genre = %v, want Others", got[1].Genre)
	}
	if !got[0].ReleaseDate.Equal(released) {
		t.Errorf("GetAll()[0].ReleaseDate = %v, want %v", got[0].ReleaseDate, released)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, genre, release_date FROM movies WHERE id = $1`)).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"id", "title", "genre", "release_date"}).
		AddRow(int64(1), "Pelicula 1", int64(1), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM movies WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ID != 1 || got.Genre != models.GenreComedia {
		t.Errorf("GetByID() = %+v", got)
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	m := models.Movie{ID: 5, Title: "Pelicula 5", Genre: models.GenreTerror, ReleaseDate: time.Now()}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO movies (id, title, genre, release_date) VALUES ($1, $2, $3, $4)`)).
		WithArgs(m.ID, m.Title, int(m.Genre), m.ReleaseDate).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), m)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.ID != m.ID {
		t.Errorf("Create().ID = %d, want %d", got.ID, m.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestPostgresRepository_Create_DuplicateID verifies that a primary key violation
// from the driver is reported as ErrDuplicateID.
func TestPostgresRepository_Create_DuplicateID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO movies`)).
		WillReturnError(&pq.Error{Code: uniqueViolation, Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), models.Movie{ID: 1})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Create() error = %v, want ErrDuplicateID", err)
	}
}

func TestPostgresRepository_Create_OtherError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO movies`)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Create(context.Background(), models.Movie{ID: 1})
	if err == nil || errors.Is(err, ErrDuplicateID) {
		t.Errorf("Create() error = %v, want wrapped driver error", err)
	}
}

func TestPostgresRepository_Update(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "updated", affected: 1, wantErr: nil},
		{name: "missing", affected: 0, wantErr: ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			m := models.Movie{ID: 2, Title: "Pelicula 22", Genre: models.GenreComedia}
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE movies SET title = $1, genre = $2, release_date = $3 WHERE id = $4`)).
				WithArgs(m.Title, int(m.Genre), m.ReleaseDate, m.ID).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			got, err := repo.Update(context.Background(), m)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Update() error = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && got.Title != m.Title {
				t.Errorf("Update().Title = %q, want %q", got.Title, m.Title)
			}
		})
	}
}

func TestPostgresRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM movies WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM movies WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), models.Movie{ID: 1}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(context.Background(), models.Movie{ID: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestPostgresRepository_Ping verifies that Ping surfaces database reachability.
func TestPostgresRepository_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}
	if err := repo.Ping(context.Background()); err == nil {
		t.Error("Ping() = nil, want error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
