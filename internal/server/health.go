package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func handleHealth(logger *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Error("health check failed", "name", "sqlite", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error"})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
