package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"shopcore/internal/auth"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondError is the single place typed errors become HTTP statuses.
// Messages are actionable but non-revealing; infrastructure detail stays in
// the logs.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "incorrect email or password", http.StatusUnauthorized)
	case auth.IsUnauthenticated(err):
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "you don't have permission for this action", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, auth.ErrConflict):
		http.Error(w, "conflict with existing data", http.StatusConflict)
	default:
		lg.Errorw("request failed", "error", err)
		http.Error(w, "temporarily unavailable, please retry", http.StatusServiceUnavailable)
	}
}
