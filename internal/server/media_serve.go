package server

import (
	"net/http"
	"os"
	"path/filepath"
)

// ServeVideoFile streams path with range support.
func ServeVideoFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		http.Error(w, "file stat failed", http.StatusInternalServerError)
		return
	}

	if ct := videoContentType(path); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-cache")

	// ServeContent supports Range if the reader is seekable (os.File is).
	http.ServeContent(w, r, filepath.Base(path), st.ModTime(), f)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, HEAD, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.methodNotAllowed(w)
		return
	}

	path, ok := s.media.Resolve(r.URL.Path)
	if !ok {
		s.writeError(w, "media reference is not valid in this session", http.StatusNotFound)
		return
	}
	ServeVideoFile(w, r, path)
}
