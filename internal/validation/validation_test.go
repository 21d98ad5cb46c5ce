package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/kjstillabower/movie-service/internal/models"
)

// TestValidateMovie verifies id, title, and genre rules and that the first
// failing rule is reported.
func TestValidateMovie(t *testing.T) {
	valid := models.Movie{ID: 1, Title: "Pelicula 1", Genre: models.GenreTerror}

	tests := []struct {
		name   string
		mutate func(m *models.Movie)
		maxLen int
		want   error
	}{
		{name: "valid", mutate: func(m *models.Movie) {}, want: nil},
		{name: "zero id", mutate: func(m *models.Movie) { m.ID = 0 }, want: ErrInvalidID},
		{name: "negative id", mutate: func(m *models.Movie) { m.ID = -3 }, want: ErrInvalidID},
		{name: "empty title", mutate: func(m *models.Movie) { m.Title = "" }, want: ErrTitleEmpty},
		{name: "whitespace title", mutate: func(m *models.Movie) { m.Title = "   " }, want: ErrTitleEmpty},
		{name: "title at limit", mutate: func(m *models.Movie) { m.Title = strings.Repeat("a", 10) }, maxLen: 10, want: nil},
		{name: "title over limit", mutate: func(m *models.Movie) { m.Title = strings.Repeat("a", 11) }, maxLen: 10, want: ErrTitleTooLong},
		{name: "multibyte title counted in runes", mutate: func(m *models.Movie) { m.Title = strings.Repeat("ñ", 10) }, maxLen: 10, want: nil},
		{name: "default limit", mutate: func(m *models.Movie) { m.Title = strings.Repeat("a", DefaultTitleMaxLength+1) }, want: ErrTitleTooLong},
		{name: "unknown genre", mutate: func(m *models.Movie) { m.Genre = models.Genre(12) }, want: ErrInvalidGenre},
		{name: "id checked first", mutate: func(m *models.Movie) { m.ID = 0; m.Title = "" }, want: ErrInvalidID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := valid
			tc.mutate(&m)
			err := ValidateMovie(m, tc.maxLen)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidateMovie() = %v, want %v", err, tc.want)
			}
		})
	}
}
