// Package quota implements a sliding-window, per-identifier rate limiter
// tiered by account class. It gates acquisitions but knows nothing about
// scraping; any quota-billed action can sit behind it.
package quota

import (
	"context"
	"log/slog"
	"time"

	"github.com/scoutly/prospector/internal/storage"
)

// Tier is the account class determining the limit applied to an identifier.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// ParseTier maps a string to a Tier, defaulting to free for anything
// unrecognized. Unknown tiers getting the strictest limit is the safe
// direction.
func ParseTier(s string) Tier {
	if s == string(TierPaid) {
		return TierPaid
	}
	return TierFree
}

// Config holds the gate's tunables. Zero values fall back to the defaults
// in NewGate.
type Config struct {
	Window    time.Duration // sliding window length
	FreeLimit int           // requests per window, free tier
	PaidLimit int           // requests per window, paid tier
	Retention time.Duration // purge horizon for old window rows
	FailOpen  bool          // admit requests when the store is unreachable
}

// Decision is the gate's verdict for one request.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Status is the read-only view of an identifier's quota state.
type Status struct {
	Identifier string    `json:"identifier"`
	Tier       Tier      `json:"tier"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// Store is the slice of storage the gate needs. The gate exclusively owns
// quota window rows; no other component touches them.
type Store interface {
	UpsertQuotaWindow(ctx context.Context, identifier, tier string, now time.Time, window time.Duration) (storage.QuotaWindow, error)
	GetQuotaWindow(ctx context.Context, identifier string) (storage.QuotaWindow, error)
	PurgeQuotaWindows(ctx context.Context, cutoff time.Time) (int64, error)
}

// Gate admits or denies gated actions under the sliding window.
type Gate struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewGate creates a gate with the reference defaults for any unset config
// field: 24h window, 1 free / 100 paid requests, 48h retention.
func NewGate(store Store, cfg Config) *Gate {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.FreeLimit <= 0 {
		cfg.FreeLimit = 1
	}
	if cfg.PaidLimit <= 0 {
		cfg.PaidLimit = 100
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 48 * time.Hour
	}
	return &Gate{store: store, cfg: cfg, now: time.Now}
}

func (g *Gate) limit(tier Tier) int {
	if tier == TierPaid {
		return g.cfg.PaidLimit
	}
	return g.cfg.FreeLimit
}

// CheckAndRecord records one request for the identifier and decides whether
// it is admitted. The count increments on every call, including denied ones,
// so a retry storm keeps pushing the count up instead of hammering at the
// boundary. The first denial therefore lands on count == limit+1.
//
// When the store is unreachable the gate follows its configured failure
// policy: fail open (admit with Remaining=0) or fail closed.
func (g *Gate) CheckAndRecord(ctx context.Context, identifier string, tier Tier) Decision {
	now := g.now().UTC()

	// Opportunistic GC of long-dead rows; best effort, amortized across
	// calls. Not needed for correctness, only storage growth.
	if n, err := g.store.PurgeQuotaWindows(ctx, now.Add(-g.cfg.Retention)); err != nil {
		slog.Debug("quota purge failed", "error", err)
	} else if n > 0 {
		slog.Debug("purged stale quota windows", "count", n)
	}

	w, err := g.store.UpsertQuotaWindow(ctx, identifier, string(tier), now, g.cfg.Window)
	if err != nil {
		if g.cfg.FailOpen {
			// Policy choice: denying legitimate users over an infra
			// hiccup is worse than leaking a little quota.
			slog.Warn("quota store unreachable, failing open", "identifier", identifier, "error", err)
			return Decision{Allowed: true, Remaining: 0, ResetAt: now.Add(g.cfg.Window)}
		}
		slog.Error("quota store unreachable, failing closed", "identifier", identifier, "error", err)
		return Decision{Allowed: false, Remaining: 0, ResetAt: now.Add(g.cfg.Window)}
	}

	limit := g.limit(tier)
	remaining := limit - w.RequestCount
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   w.RequestCount <= limit,
		Remaining: remaining,
		ResetAt:   w.WindowStart.Add(g.cfg.Window),
	}
}

// Peek reports the identifier's quota state without recording a request.
// An unseen or expired identifier shows a full allowance.
func (g *Gate) Peek(ctx context.Context, identifier string, tier Tier) (Status, error) {
	now := g.now().UTC()
	limit := g.limit(tier)

	fresh := Status{
		Identifier: identifier,
		Tier:       tier,
		Limit:      limit,
		Remaining:  limit,
		ResetAt:    now.Add(g.cfg.Window),
	}

	w, err := g.store.GetQuotaWindow(ctx, identifier)
	if err == storage.ErrNotFound {
		return fresh, nil
	}
	if err != nil {
		return Status{}, err
	}
	if w.WindowStart.Before(now.Add(-g.cfg.Window)) {
		// Row exists but its window has lapsed; the next request resets it.
		return fresh, nil
	}

	remaining := limit - w.RequestCount
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Identifier: identifier,
		Tier:       ParseTier(w.Tier),
		Used:       w.RequestCount,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    w.WindowStart.Add(g.cfg.Window),
	}, nil
}
