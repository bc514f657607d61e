package server

import (
	"encoding/json"
	"net/http"
)

// PlaybackTick is one time update from an open player. Seq increases with
// every tick the player emits.
type PlaybackTick struct {
	Token           string   `json:"token"`
	Seq             uint64   `json:"seq"`
	PositionSeconds *float64 `json:"positionSeconds"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request, id string) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	session, err := s.catalog.OpenSession(id)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	writeJSONStatus(w, r, http.StatusCreated, session)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request, token string) {
	if s.handleOptions(w, r, "DELETE, OPTIONS") {
		return
	}
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w)
		return
	}

	s.catalog.CloseSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}

// handleProgress applies one player tick. The token already names the entry.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var payload PlaybackTick
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&payload); err != nil {
		s.writeError(w, "bad request", http.StatusBadRequest)
		return
	}
	if payload.Token == "" || payload.PositionSeconds == nil {
		s.writeError(w, "token and positionSeconds are required", http.StatusBadRequest)
		return
	}

	if err := s.catalog.RecordTick(payload.Token, payload.Seq, *payload.PositionSeconds); err != nil {
		s.writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
