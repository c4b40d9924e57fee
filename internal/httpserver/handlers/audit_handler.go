package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"shopcore/internal/audit"
)

// AuditLogs returns recent audit rows, newest first. Optional filters:
// ?user_id=… and ?limit=… (capped at 500).
func AuditLogs(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 200
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		logs, err := rec.Recent(r.Context(), r.URL.Query().Get("user_id"), limit)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, logs)
	}
}
