package catalog

import (
	"fmt"
	"strings"
)

// Genres is the fixed vocabulary offered by the upload form.
var Genres = []string{
	"Action", "Adventure", "Comedy", "Drama", "Fantasy", "Horror",
	"Mystery", "Romance", "Sci-Fi", "Slice of Life", "Sports", "Supernatural",
}

var genreIndex = func() map[string]string {
	m := make(map[string]string, len(Genres))
	for _, g := range Genres {
		m[strings.ToLower(g)] = g
	}
	return m
}()

// CanonicalGenre returns the vocabulary spelling of name.
func CanonicalGenre(name string) (string, bool) {
	g, ok := genreIndex[strings.ToLower(strings.TrimSpace(name))]
	return g, ok
}

// NormalizeGenres maps every genre to its canonical spelling and drops
// duplicates, keeping the first occurrence. Blank values are ignored.
func NormalizeGenres(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		g, ok := CanonicalGenre(raw)
		if !ok {
			return nil, &ValidationError{Field: "genres", Err: fmt.Errorf("%w: %q", ErrUnknownGenre, raw)}
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out, nil
}
