// Package scrape implements the two profile acquisition strategies: a
// headless-browser render of the live page and a search-index API lookup.
// Both share the same result taxonomy and are selected by configuration,
// not chained at runtime.
package scrape

import (
	"context"
	"fmt"

	"github.com/scoutly/prospector/internal/profile"
)

// ErrorKind classifies acquisition failures for callers.
type ErrorKind string

const (
	KindInvalidURL          ErrorKind = "invalid_url"
	KindTimeout             ErrorKind = "timeout"
	KindInsufficientData    ErrorKind = "insufficient_data"
	KindNotFound            ErrorKind = "not_found"
	KindAuthConfig          ErrorKind = "auth_config"
	KindUpstreamRateLimited ErrorKind = "upstream_rate_limited"
	KindUpstreamError       ErrorKind = "upstream_error"
	KindInternal            ErrorKind = "internal"
)

// Retryable reports whether retrying the same input could plausibly succeed.
// A malformed URL never becomes valid by retrying; a timeout or upstream
// hiccup might clear.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindTimeout, KindUpstreamError, KindUpstreamRateLimited:
		return true
	}
	return false
}

// Failure describes why an acquisition failed, in caller-presentable terms.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is the tagged outcome of one acquisition: exactly one of Profile or
// Failure is set.
type Result struct {
	Profile  *profile.Record `json:"profile,omitempty"`
	Failure  *Failure        `json:"failure,omitempty"`
	Strategy string          `json:"strategy"`
}

// OK reports whether the acquisition produced a usable record.
func (r Result) OK() bool { return r.Profile != nil && r.Failure == nil }

// Success wraps a record into a Result.
func Success(strategy string, rec profile.Record) Result {
	return Result{Profile: &rec, Strategy: strategy}
}

// Fail builds a failure Result.
func Fail(strategy string, kind ErrorKind, format string, args ...any) Result {
	return Result{
		Failure:  &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)},
		Strategy: strategy,
	}
}

// Strategy is one acquisition mechanism. Implementations recover all
// expected failures into the Result taxonomy; no error escapes Acquire.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, username string) Result
}
