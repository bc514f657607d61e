package catalog

import "strings"

// HomeLimit is how many entries the home view shows.
const HomeLimit = 12

// View selects one of the two listings of the catalog.
type View string

const (
	ViewHome    View = "home"
	ViewLibrary View = "library"
)

// ParseView maps user input to a View. Anything unknown is the library.
func ParseView(s string) View {
	if strings.EqualFold(strings.TrimSpace(s), string(ViewHome)) {
		return ViewHome
	}
	return ViewLibrary
}

// ApplyFilter returns the entries whose title, description or any genre
// contains query, ignoring case. Relative order is kept. An empty query
// matches everything.
func ApplyFilter(entries []Entry, query string) []Entry {
	out := make([]Entry, 0, len(entries))
	if query == "" {
		return append(out, entries...)
	}
	q := strings.ToLower(query)
	for _, e := range entries {
		if Matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether e matches the already lower-cased query.
func Matches(e Entry, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(e.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(e.Description), lowerQuery) {
		return true
	}
	for _, g := range e.Genres {
		if strings.Contains(strings.ToLower(g), lowerQuery) {
			return true
		}
	}
	return false
}

// Project cuts a filtered listing down to what the view displays.
func Project(entries []Entry, view View) []Entry {
	if view == ViewHome && len(entries) > HomeLimit {
		return entries[:HomeLimit]
	}
	return entries
}
