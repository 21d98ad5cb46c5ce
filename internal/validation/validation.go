package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kjstillabower/movie-service/internal/models"
)

// DefaultTitleMaxLength is used when no maximum is configured.
const DefaultTitleMaxLength = 200

// ErrInvalidID is returned when a movie id is zero or negative.
var ErrInvalidID = errors.New("id must be a positive integer")

// ErrTitleEmpty is returned when the title is empty or whitespace-only.
var ErrTitleEmpty = errors.New("title is required")

// ErrTitleTooLong is returned when the title exceeds the maximum length.
var ErrTitleTooLong = errors.New("title too long")

// ErrGenreRequired is returned when a request body omits the genre.
var ErrGenreRequired = errors.New("genre is required")

// ErrInvalidGenre is returned when the genre is outside the known set.
var ErrInvalidGenre = errors.New("genre is not recognised")

// ValidateMovie checks the fields a client supplies on create and update:
// a positive id, a non-blank title of at most maxTitleLen runes (DefaultTitleMaxLength
// when maxTitleLen <= 0) and a known genre. Returns the first failure.
func ValidateMovie(m models.Movie, maxTitleLen int) error {
	if m.ID <= 0 {
		return ErrInvalidID
	}
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return ErrTitleEmpty
	}
	if maxTitleLen <= 0 {
		maxTitleLen = DefaultTitleMaxLength
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return ErrTitleTooLong
	}
	if !m.Genre.Valid() {
		return ErrInvalidGenre
	}
	return nil
}
