package server

import (
	"math"
	"net/http"

	"github.com/treefix50/reelshelf/internal/catalog"
)

// entryView is an entry plus what the page displays next to it.
type entryView struct {
	catalog.Entry
	ProgressPercent float64 `json:"progressPercent"`
	Duration        string  `json:"duration"`
	Position        string  `json:"position"`
}

func newEntryView(e catalog.Entry) entryView {
	return entryView{
		Entry:           e,
		ProgressPercent: math.Round(e.ProgressPercent()*10) / 10,
		Duration:        catalog.FormatDuration(e.DurationSeconds),
		Position:        catalog.FormatClock(e.WatchTimeSeconds),
	}
}

func newEntryViews(entries []catalog.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryView(e))
	}
	return out
}

// GET /entries?q=&view=home|library, POST /entries
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		q := r.URL.Query()
		var entries []catalog.Entry
		if catalog.ParseView(q.Get("view")) == catalog.ViewHome {
			entries = s.catalog.Home(q.Get("q"))
		} else {
			entries = s.catalog.Library(q.Get("q"))
		}
		writeJSON(w, r, newEntryViews(entries))
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		s.methodNotAllowed(w)
	}
}

// Routes under /entries/{id}[/{action}...]
func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/entries/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.handleEntryItem(w, r, id)
	case parts[1] == "sessions" && len(parts) == 2:
		s.handleOpenSession(w, r, id)
	case parts[1] == "sessions" && len(parts) == 3:
		s.handleCloseSession(w, r, parts[2])
	case parts[1] == "progress" && len(parts) == 2:
		s.handleProgress(w, r)
	case parts[1] == "relink" && len(parts) == 2:
		s.handleRelink(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleEntryItem(w http.ResponseWriter, r *http.Request, id string) {
	if s.handleOptions(w, r, "GET, DELETE, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		e, err := s.catalog.Get(id)
		if err != nil {
			s.writeCatalogError(w, err)
			return
		}
		writeJSON(w, r, newEntryView(e))
	case http.MethodDelete:
		// the page confirms before it sends this
		s.catalog.DeleteEntry(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)
	default:
		s.methodNotAllowed(w)
	}
}
