package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scoutly/prospector/internal/extract"
	"github.com/scoutly/prospector/internal/linkedin"
	"github.com/scoutly/prospector/internal/profile"
)

const searchStrategyName = "search"

const defaultSearchBaseURL = "https://serpapi.com"

// maxErrorBody bounds how much of an upstream error body is carried into a
// failure message.
const maxErrorBody = 512

// SearchConfig tunes the search-API strategy.
type SearchConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SearchStrategy queries a third-party search index for a cached view of the
// profile instead of rendering the page. Cheaper and faster than the browser
// but limited to whatever the index has seen.
type SearchStrategy struct {
	cfg        SearchConfig
	httpClient *http.Client
}

// NewSearchStrategy creates the strategy. The HTTP client carries no global
// timeout; each query gets its own deadline from cfg.Timeout.
func NewSearchStrategy(cfg SearchConfig) *SearchStrategy {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSearchBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SearchStrategy{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

func (s *SearchStrategy) Name() string { return searchStrategyName }

// Acquire queries the index with the full profile URL, then retries once
// with the bare username if no profile-shaped result comes back. The
// fallback's own failure is logged and swallowed so the caller sees the
// primary failure reason.
func (s *SearchStrategy) Acquire(ctx context.Context, username string) Result {
	primaryTerm := linkedin.ProfileURL(username)

	rec, failure := s.query(ctx, primaryTerm)
	if failure == nil {
		return Success(searchStrategyName, rec)
	}

	if failure.Kind == KindNotFound {
		slog.Debug("search miss on full URL, retrying with bare username", "username", username)
		if rec, fbFailure := s.query(ctx, username); fbFailure == nil {
			return Success(searchStrategyName, rec)
		} else {
			slog.Debug("fallback query failed", "username", username, "kind", fbFailure.Kind, "message", fbFailure.Message)
		}
	}

	return Result{Failure: failure, Strategy: searchStrategyName}
}

// query runs one search request and extracts a record from the first
// profile-shaped result it can locate in the payload.
func (s *SearchStrategy) query(ctx context.Context, term string) (profile.Record, *Failure) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", term)
	params.Set("num", "10")
	params.Set("api_key", s.cfg.APIKey)

	reqURL := s.cfg.BaseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return profile.Record{}, &Failure{Kind: KindInternal, Message: fmt.Sprintf("building search request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// A deadline-triggered abort is our own cancellation, not an
		// upstream fault; keep the two distinguishable.
		if errors.Is(err, context.DeadlineExceeded) {
			return profile.Record{}, &Failure{Kind: KindTimeout, Message: fmt.Sprintf("search query timed out after %s", s.cfg.Timeout)}
		}
		return profile.Record{}, &Failure{Kind: KindUpstreamError, Message: fmt.Sprintf("search request failed: %v", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return profile.Record{}, &Failure{Kind: KindAuthConfig, Message: "search API rejected credentials (HTTP 401)"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return profile.Record{}, &Failure{Kind: KindUpstreamRateLimited, Message: "search API rate limit exceeded (HTTP 429)"}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return profile.Record{}, &Failure{
			Kind:    KindUpstreamError,
			Message: fmt.Sprintf("search API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return profile.Record{}, &Failure{Kind: KindUpstreamError, Message: fmt.Sprintf("decoding search response: %v", err)}
	}

	src, found := locateProfileResult(extract.JSONSource(payload))
	if !found {
		return profile.Record{}, &Failure{Kind: KindNotFound, Message: fmt.Sprintf("no indexed profile found for %q", term)}
	}

	rec, err := profile.Assemble(extract.FromJSON(src))
	if err != nil {
		return profile.Record{}, &Failure{Kind: KindNotFound, Message: fmt.Sprintf("indexed result for %q carries no usable profile fields", term)}
	}
	return rec, nil
}

// locateProfileResult searches the known places a profile can appear in the
// upstream payload. The API's shape varies between query types, so all
// locations are tried in order: a direct profile object, a list of
// profile-shaped entries, then organic results whose link points at a
// profile path.
func locateProfileResult(payload extract.JSONSource) (extract.JSONSource, bool) {
	if obj, ok := payload.Object("profile", "knowledge_graph"); ok {
		if _, hasName := obj.String("name", "title", "full_name"); hasName {
			return obj, true
		}
	}

	if list := payload.Objects("profiles", "people"); len(list) > 0 {
		return list[0], true
	}

	for _, res := range payload.Objects("organic_results", "results") {
		link, _ := res.String("link", "url")
		if strings.Contains(link, "linkedin.com/in/") {
			return res, true
		}
	}

	return nil, false
}
