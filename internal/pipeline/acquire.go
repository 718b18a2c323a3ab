// Package pipeline wires the acquisition stages together: URL
// normalization, the quota gate, and the configured strategy. It is the
// only entry point callers use to fetch a profile.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scoutly/prospector/internal/linkedin"
	"github.com/scoutly/prospector/internal/quota"
	"github.com/scoutly/prospector/internal/scrape"
	"github.com/scoutly/prospector/internal/storage"
)

// Gate is the admission decision the pipeline consults before doing any
// network work.
type Gate interface {
	CheckAndRecord(ctx context.Context, identifier string, tier quota.Tier) quota.Decision
}

// AuditLog records completed acquisitions. Saving is best effort; an audit
// write failure never fails the acquisition itself.
type AuditLog interface {
	SaveAcquisition(ctx context.Context, a storage.Acquisition) error
}

// Acquirer runs the acquisition state machine:
// Normalize -> QuotaCheck -> Strategy.Acquire. Any stage failure
// short-circuits. The strategy is fixed at construction; there is no
// runtime fallback between strategies.
type Acquirer struct {
	gate     Gate
	strategy scrape.Strategy
	audit    AuditLog
	now      func() time.Time
}

// NewAcquirer builds an Acquirer. audit may be nil to disable the audit log.
func NewAcquirer(gate Gate, strategy scrape.Strategy, audit AuditLog) *Acquirer {
	return &Acquirer{
		gate:     gate,
		strategy: strategy,
		audit:    audit,
		now:      time.Now,
	}
}

// Outcome bundles the acquisition result with the quota decision that
// admitted (or denied) it, so callers can surface remaining allowance.
type Outcome struct {
	Username string          `json:"username,omitempty"`
	Result   scrape.Result   `json:"result"`
	Decision *quota.Decision `json:"quota,omitempty"`
}

// Acquire fetches the profile behind rawURL on behalf of identifier.
//
// A malformed URL fails before the quota gate is consulted, so invalid
// input never burns allowance. A denied quota check fails before the
// strategy runs, so it never costs an upstream request either.
func (a *Acquirer) Acquire(ctx context.Context, rawURL, identifier string, tier quota.Tier) Outcome {
	username, err := linkedin.Normalize(rawURL)
	if err != nil {
		res := scrape.Fail(a.strategy.Name(), scrape.KindInvalidURL, "%v", err)
		a.record(ctx, identifier, "", res, 0)
		return Outcome{Result: res}
	}

	dec := a.gate.CheckAndRecord(ctx, identifier, tier)
	if !dec.Allowed {
		// Local quota denial reuses the rate-limited kind; the message
		// tells the caller it was our gate, not the upstream's.
		res := scrape.Fail(a.strategy.Name(), scrape.KindUpstreamRateLimited,
			"quota exceeded for this identifier, resets at %s", dec.ResetAt.Format(time.RFC3339))
		a.record(ctx, identifier, username, res, 0)
		return Outcome{Username: username, Result: res, Decision: &dec}
	}

	start := a.now()
	res := a.strategy.Acquire(ctx, username)
	elapsed := a.now().Sub(start)

	if res.OK() {
		slog.Info("profile acquired",
			"username", username, "strategy", res.Strategy, "duration_ms", elapsed.Milliseconds())
	} else {
		slog.Info("acquisition failed",
			"username", username, "strategy", res.Strategy,
			"kind", res.Failure.Kind, "duration_ms", elapsed.Milliseconds())
	}

	a.record(ctx, identifier, username, res, elapsed)
	return Outcome{Username: username, Result: res, Decision: &dec}
}

func (a *Acquirer) record(ctx context.Context, identifier, username string, res scrape.Result, elapsed time.Duration) {
	if a.audit == nil {
		return
	}

	entry := storage.Acquisition{
		ID:         uuid.New().String(),
		Username:   username,
		Identifier: identifier,
		Strategy:   res.Strategy,
		Status:     "success",
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  a.now().UTC(),
	}
	if !res.OK() {
		entry.Status = "failure"
		entry.ErrorKind = string(res.Failure.Kind)
		entry.Message = res.Failure.Message
	}

	if err := a.audit.SaveAcquisition(ctx, entry); err != nil {
		slog.Warn("saving acquisition audit entry", "error", err)
	}
}
