package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/product-view/internal/domain/product"
)

// errorResponse is the envelope written for every non-2xx response.
type errorResponse struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, status, errorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
	})
}

// respondDomainError maps a classified failure onto the envelope. Store
// connectivity problems surface as 503, everything else as the kind's
// status.
func respondDomainError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	derr := product.Classify(err)
	status := derr.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(derr.Kind)),
			zap.Error(err),
		)
		// Do not leak internals for server-side failures.
		respondError(w, r, status, "request could not be served")
		return
	}
	respondError(w, r, status, derr.Message)
}
