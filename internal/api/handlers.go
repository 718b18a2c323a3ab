// Package api exposes the acquisition pipeline over HTTP and MCP. The HTTP
// surface is a small bearer-token-protected JSON API; health is the only
// unauthenticated route.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scoutly/prospector/internal/pipeline"
	"github.com/scoutly/prospector/internal/quota"
	"github.com/scoutly/prospector/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Acquirer runs one acquisition end to end.
type Acquirer interface {
	Acquire(ctx context.Context, rawURL, identifier string, tier quota.Tier) pipeline.Outcome
}

// QuotaGate is the slice of the gate the API needs.
type QuotaGate interface {
	CheckAndRecord(ctx context.Context, identifier string, tier quota.Tier) quota.Decision
	Peek(ctx context.Context, identifier string, tier quota.Tier) (quota.Status, error)
}

// AuditReader lists recorded acquisitions.
type AuditReader interface {
	ListAcquisitions(ctx context.Context, limit, offset int) ([]storage.Acquisition, error)
}

type Deps struct {
	Acquirer Acquirer
	Gate     QuotaGate
	Audit    AuditReader // optional; if nil, GET /v1/acquisitions returns 404
	Token    string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/acquisitions", handleAcquire(deps))
		r.Get("/v1/acquisitions", handleListAcquisitions(deps))
		r.Get("/v1/quota/{identifier}", handleQuotaStatus(deps))
		r.Post("/v1/quota/{identifier}/check", handleQuotaCheck(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type acquireRequest struct {
	URL        string `json:"url"`
	Identifier string `json:"identifier"`
	Tier       string `json:"tier"`
}

func handleAcquire(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req acquireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
			return
		}

		identifier := req.Identifier
		if identifier == "" {
			// Anonymous callers are rate-limited by source address.
			identifier = callerIP(r)
		}

		out := deps.Acquirer.Acquire(r.Context(), req.URL, identifier, quota.ParseTier(req.Tier))
		if !out.Result.OK() {
			failureError(w, out.Result.Failure)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleListAcquisitions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Audit == nil {
			httpError(w, http.StatusNotFound, "not_found", "audit log disabled")
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		entries, err := deps.Audit.ListAcquisitions(r.Context(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list acquisitions: %v", err)
			return
		}
		if entries == nil {
			entries = []storage.Acquisition{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

func handleQuotaStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := chi.URLParam(r, "identifier")
		tier := quota.ParseTier(r.URL.Query().Get("tier"))

		status, err := deps.Gate.Peek(r.Context(), identifier, tier)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read quota: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// handleQuotaCheck records one gated action for the identifier without
// running an acquisition. Non-scraping callers use this to bill their own
// actions against the same allowance.
func handleQuotaCheck(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := chi.URLParam(r, "identifier")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req struct {
			Tier string `json:"tier"`
		}
		// An empty body means free tier; malformed JSON is still an error.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		dec := deps.Gate.CheckAndRecord(r.Context(), identifier, quota.ParseTier(req.Tier))

		w.Header().Set("Content-Type", "application/json")
		if !dec.Allowed {
			w.WriteHeader(http.StatusTooManyRequests)
		}
		json.NewEncoder(w).Encode(dec)
	}
}

// callerIP extracts the host portion of the remote address.
func callerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
