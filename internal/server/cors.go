package server

import "net/http"

func setCORSHeaders(w http.ResponseWriter, enabled bool) {
	if enabled {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
}

// handleOptions answers a preflight request and reports whether it did.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request, methods string) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Set("Allow", methods)
	if s.cors {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Max-Age", "600")
	}
	w.WriteHeader(http.StatusNoContent)
	return true
}
