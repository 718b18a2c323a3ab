package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/scoutly/prospector/internal/scrape"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// failureError writes an acquisition failure with its kind and a retryable
// hint, so clients can distinguish "fix your input" from "try again later".
func failureError(w http.ResponseWriter, f *scrape.Failure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForKind(f.Kind))
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message":   f.Message,
			"type":      "acquisition_error",
			"kind":      f.Kind,
			"retryable": scrape.Retryable(f.Kind),
		},
	})
}

func statusForKind(kind scrape.ErrorKind) int {
	switch kind {
	case scrape.KindInvalidURL:
		return http.StatusBadRequest
	case scrape.KindNotFound:
		return http.StatusNotFound
	case scrape.KindInsufficientData:
		return http.StatusUnprocessableEntity
	case scrape.KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case scrape.KindTimeout:
		return http.StatusGatewayTimeout
	case scrape.KindAuthConfig, scrape.KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
