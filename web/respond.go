package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tagryu/GlobalCampus/pkg/models"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode response", "err", err)
	}
}

// displayText is the form-render counterpart of respondError: validation
// problems and credential rejections carry their own message, anything else
// renders a generic one and stays in the logs.
func (s *Server) displayText(err error) string {
	var valErr *models.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	s.log.Error("request failed", "err", err)
	return "something went wrong, please try again"
}

// respondError maps the error taxonomy to a status and a safe message.
// Validation problems and credential rejections carry their own text;
// infrastructure failures stay in the logs.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var valErr *models.ValidationError
	if errors.As(err, &valErr) {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: valErr.Error()})
		return
	}
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
		return
	}
	s.log.Error("request failed", "err", err)
	s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong"})
}
