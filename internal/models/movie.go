package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Genre is the closed set of movie genres. Ordinals are part of the wire format.
type Genre int

const (
	GenreTerror Genre = iota
	GenreComedia
	GenreDrama
	GenreOthers
)

var genreNames = [...]string{
	GenreTerror:  "Terror",
	GenreComedia: "Comedia",
	GenreDrama:   "Drama",
	GenreOthers:  "Others",
}

// Genres lists every valid genre in ordinal order.
func Genres() []Genre {
	return []Genre{GenreTerror, GenreComedia, GenreDrama, GenreOthers}
}

// Valid reports whether g is one of the defined genres.
func (g Genre) Valid() bool {
	return g >= GenreTerror && g <= GenreOthers
}

func (g Genre) String() string {
	if !g.Valid() {
		return "Genre(" + strconv.Itoa(int(g)) + ")"
	}
	return genreNames[g]
}

// ParseGenre resolves a genre by name, ignoring case and surrounding whitespace.
func ParseGenre(s string) (Genre, error) {
	s = strings.TrimSpace(s)
	for _, g := range Genres() {
		if strings.EqualFold(s, genreNames[g]) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown genre %q", s)
}

// MarshalJSON encodes the genre as its name.
func (g Genre) MarshalJSON() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("unknown genre %d", int(g))
	}
	return json.Marshal(genreNames[g])
}

// UnmarshalJSON accepts either the genre name or its ordinal.
func (g *Genre) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, err := ParseGenre(name)
		if err != nil {
			return err
		}
		*g = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("genre must be a name or ordinal: %w", err)
	}
	if !Genre(n).Valid() {
		return fmt.Errorf("unknown genre %d", n)
	}
	*g = Genre(n)
	return nil
}

// Movie is the only entity the service manages. ID is supplied by the caller.
type Movie struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Genre       Genre     `json:"genre"`
	ReleaseDate time.Time `json:"releaseDate"`
}
