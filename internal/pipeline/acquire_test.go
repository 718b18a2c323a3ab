package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scoutly/prospector/internal/profile"
	"github.com/scoutly/prospector/internal/quota"
	"github.com/scoutly/prospector/internal/scrape"
	"github.com/scoutly/prospector/internal/storage"
)

type stubGate struct {
	decision quota.Decision
	calls    int
	lastID   string
	lastTier quota.Tier
}

func (g *stubGate) CheckAndRecord(_ context.Context, identifier string, tier quota.Tier) quota.Decision {
	g.calls++
	g.lastID = identifier
	g.lastTier = tier
	return g.decision
}

type stubStrategy struct {
	result scrape.Result
	calls  int
	lastUN string
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Acquire(_ context.Context, username string) scrape.Result {
	s.calls++
	s.lastUN = username
	return s.result
}

type stubAudit struct {
	entries []storage.Acquisition
	err     error
}

func (a *stubAudit) SaveAcquisition(_ context.Context, e storage.Acquisition) error {
	a.entries = append(a.entries, e)
	return a.err
}

func allowed() quota.Decision {
	return quota.Decision{Allowed: true, Remaining: 5, ResetAt: time.Now().Add(time.Hour)}
}

func okResult() scrape.Result {
	return scrape.Success("stub", profile.Record{FullName: "Jane Doe", Headline: "Engineer"})
}

func TestAcquire_Success(t *testing.T) {
	gate := &stubGate{decision: allowed()}
	strat := &stubStrategy{result: okResult()}
	audit := &stubAudit{}
	a := NewAcquirer(gate, strat, audit)

	out := a.Acquire(context.Background(), "https://www.linkedin.com/in/janedoe", "user-1", quota.TierPaid)

	if !out.Result.OK() {
		t.Fatalf("Result = %+v, want success", out.Result)
	}
	if out.Username != "janedoe" {
		t.Errorf("Username = %q", out.Username)
	}
	if strat.lastUN != "janedoe" {
		t.Errorf("strategy got username %q, want normalized form", strat.lastUN)
	}
	if gate.lastID != "user-1" || gate.lastTier != quota.TierPaid {
		t.Errorf("gate saw (%q, %q)", gate.lastID, gate.lastTier)
	}
	if out.Decision == nil || !out.Decision.Allowed {
		t.Error("quota decision missing from outcome")
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != "success" {
		t.Errorf("audit entries = %+v", audit.entries)
	}
}

// A malformed URL must fail before any quota is charged or network touched.
func TestAcquire_InvalidURLShortCircuits(t *testing.T) {
	gate := &stubGate{decision: allowed()}
	strat := &stubStrategy{result: okResult()}
	a := NewAcquirer(gate, strat, nil)

	out := a.Acquire(context.Background(), "https://example.com/in/janedoe", "user-1", quota.TierFree)

	if out.Result.OK() {
		t.Fatal("want failure")
	}
	if out.Result.Failure.Kind != scrape.KindInvalidURL {
		t.Errorf("Kind = %q", out.Result.Failure.Kind)
	}
	if gate.calls != 0 {
		t.Error("quota charged for invalid URL")
	}
	if strat.calls != 0 {
		t.Error("strategy invoked for invalid URL")
	}
	if out.Decision != nil {
		t.Error("no quota decision expected")
	}
}

func TestAcquire_QuotaDeniedShortCircuits(t *testing.T) {
	resetAt := time.Now().Add(2 * time.Hour).UTC()
	gate := &stubGate{decision: quota.Decision{Allowed: false, ResetAt: resetAt}}
	strat := &stubStrategy{result: okResult()}
	audit := &stubAudit{}
	a := NewAcquirer(gate, strat, audit)

	out := a.Acquire(context.Background(), "linkedin.com/in/janedoe", "user-1", quota.TierFree)

	if out.Result.OK() {
		t.Fatal("want failure")
	}
	if out.Result.Failure.Kind != scrape.KindUpstreamRateLimited {
		t.Errorf("Kind = %q", out.Result.Failure.Kind)
	}
	if strat.calls != 0 {
		t.Error("strategy invoked despite denial")
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != "failure" {
		t.Errorf("audit entries = %+v", audit.entries)
	}
}

func TestAcquire_StrategyFailurePassesThrough(t *testing.T) {
	gate := &stubGate{decision: allowed()}
	strat := &stubStrategy{result: scrape.Fail("stub", scrape.KindInsufficientData, "profile likely private")}
	audit := &stubAudit{}
	a := NewAcquirer(gate, strat, audit)

	out := a.Acquire(context.Background(), "www.linkedin.com/in/ghost", "user-1", quota.TierFree)

	if out.Result.OK() {
		t.Fatal("want failure")
	}
	if out.Result.Failure.Kind != scrape.KindInsufficientData {
		t.Errorf("Kind = %q", out.Result.Failure.Kind)
	}
	if audit.entries[0].ErrorKind != "insufficient_data" {
		t.Errorf("audit ErrorKind = %q", audit.entries[0].ErrorKind)
	}
}

// Audit log failures are logged and swallowed; the result is unaffected.
func TestAcquire_AuditFailureIgnored(t *testing.T) {
	gate := &stubGate{decision: allowed()}
	strat := &stubStrategy{result: okResult()}
	audit := &stubAudit{err: errors.New("disk full")}
	a := NewAcquirer(gate, strat, audit)

	out := a.Acquire(context.Background(), "https://linkedin.com/in/janedoe", "user-1", quota.TierPaid)
	if !out.Result.OK() {
		t.Errorf("Result = %+v, want success despite audit error", out.Result)
	}
}

func TestAcquire_NilAuditLog(t *testing.T) {
	a := NewAcquirer(&stubGate{decision: allowed()}, &stubStrategy{result: okResult()}, nil)
	out := a.Acquire(context.Background(), "https://linkedin.com/in/janedoe", "user-1", quota.TierFree)
	if !out.Result.OK() {
		t.Errorf("Result = %+v", out.Result)
	}
}
