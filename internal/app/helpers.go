package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

// RequireMethod validates that the request uses the specified HTTP method
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// RequireEditMode validates that edit mode is enabled
func (s *Server) RequireEditMode(w http.ResponseWriter) bool {
	if !s.editMode {
		writeError(w, http.StatusForbidden, ErrEditModeDisabled)
		return false
	}
	return true
}

// mutation guards a state-changing handler: POST only, edit mode only.
func (s *Server) mutation(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !RequireMethod(w, r, http.MethodPost) || !s.RequireEditMode(w) {
			return
		}
		h(w, r)
	}
}

// readJSON decodes the request body into v and answers 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidRequest+": "+err.Error())
		return false
	}
	return true
}

// writeJSON encodes v as the response body
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

// writeStatus answers {"status": status} plus any extra fields
func (s *Server) writeStatus(w http.ResponseWriter, status string, extra map[string]any) {
	body := map[string]any{"status": status}
	for k, v := range extra {
		body[k] = v
	}
	s.writeJSON(w, body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeRosterError maps a roster error to a response. Persistence failures
// are server errors; everything else is the caller's fault.
func (s *Server) writeRosterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrSaveFailed):
		s.logger.Error("persisting roster failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrFailedToSave)
	case errors.Is(err, roster.ErrMalformedProject):
		writeError(w, http.StatusBadRequest, MsgProjectReadFailed)
	case errors.Is(err, roster.ErrInvalidProjectFormat):
		writeError(w, http.StatusBadRequest, MsgInvalidProjectFormat)
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// changed answers ok or unchanged depending on whether anything happened.
func (s *Server) changed(w http.ResponseWriter, ok bool, err error, extra map[string]any) {
	if err != nil {
		s.writeRosterError(w, err)
		return
	}
	status := StatusOK
	if !ok {
		status = StatusUnchanged
	}
	s.writeStatus(w, status, extra)
}
