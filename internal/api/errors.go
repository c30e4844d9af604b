package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse is the envelope for failures served outside huma's
// operation layer (panics, probe endpoints). The request ID is echoed
// back so a client report can be matched against the server log.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestIDFrom(ctx)})
}
