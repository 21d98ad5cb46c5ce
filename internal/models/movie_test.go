package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestGenre_String(t *testing.T) {
	tests := []struct {
		g    Genre
		want string
	}{
		{GenreTerror, "Terror"},
		{GenreComedia, "Comedia"},
		{GenreDrama, "Drama"},
		{GenreOthers, "Others"},
		{Genre(42), "Genre(42)"},
	}
	for _, tt := range tests {
		if got := tt.g.String(); got != tt.want {
			t.Errorf("Genre(%d).String() = %q, want %q", int(tt.g), got, tt.want)
		}
	}
}

func TestParseGenre(t *testing.T) {
	tests := []struct {
		in      string
		want    Genre
		wantErr bool
	}{
		{"Terror", GenreTerror, false},
		{"comedia", GenreComedia, false},
		{"  DRAMA ", GenreDrama, false},
		{"Others", GenreOthers, false},
		{"western", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseGenre(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGenre(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseGenre(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestGenre_UnmarshalJSON verifies that a genre decodes from its name or ordinal
// and that values outside the closed set are rejected.
func TestGenre_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Genre
		wantErr bool
	}{
		{`"Comedia"`, GenreComedia, false},
		{`"others"`, GenreOthers, false},
		{`2`, GenreDrama, false},
		{`0`, GenreTerror, false},
		{`7`, 0, true},
		{`-1`, 0, true},
		{`"sci-fi"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		var g Genre
		err := json.Unmarshal([]byte(tt.in), &g)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && g != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, g, tt.want)
		}
	}
}

func TestGenre_MarshalJSON_Invalid(t *testing.T) {
	if _, err := json.Marshal(Genre(9)); err == nil {
		t.Error("Marshal(Genre(9)) expected error, got nil")
	}
}

// TestMovie_JSONShape verifies the field names used on the wire.
func TestMovie_JSONShape(t *testing.T) {
	m := Movie{
		ID:          3,
		Title:       "Pelicula 3",
		Genre:       GenreComedia,
		ReleaseDate: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(raw)
	for _, want := range []string{`"id":3`, `"title":"Pelicula 3"`, `"genre":"Comedia"`, `"releaseDate":"2021-06-01T00:00:00Z"`} {
		if !strings.Contains(body, want) {
			t.Errorf("Marshal() = %s, missing %s", body, want)
		}
	}
}
