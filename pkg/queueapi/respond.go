package queueapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/spool/pkg/logger"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), msg,
			slog.String("path", r.URL.Path), slog.String("request_id", middleware.GetReqID(r.Context())), logger.Error(err))
	}
	respondJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}
