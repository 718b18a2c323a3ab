package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scoutly/prospector/internal/storage"
)

func newTestGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return NewGate(s, cfg)
}

func TestCheckAndRecord_FreeTierDeniedOnSecondCall(t *testing.T) {
	g := newTestGate(t, Config{})
	ctx := context.Background()

	d := g.CheckAndRecord(ctx, "user-1", TierFree)
	if !d.Allowed {
		t.Fatal("first free-tier call must be allowed")
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0 after using the single free request", d.Remaining)
	}

	d = g.CheckAndRecord(ctx, "user-1", TierFree)
	if d.Allowed {
		t.Error("second free-tier call must be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", d.Remaining)
	}
}

func TestCheckAndRecord_PaidTierDeniedOnCall101(t *testing.T) {
	g := newTestGate(t, Config{})
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d := g.CheckAndRecord(ctx, "payer", TierPaid)
		if !d.Allowed {
			t.Fatalf("paid call %d denied", i)
		}
		if want := 100 - i; d.Remaining != want {
			t.Fatalf("call %d: Remaining = %d, want %d", i, d.Remaining, want)
		}
	}

	d := g.CheckAndRecord(ctx, "payer", TierPaid)
	if d.Allowed {
		t.Error("call 101 must be denied")
	}
}

// Denied calls still record, so the count keeps growing past the limit.
func TestCheckAndRecord_DeniedCallsStillCount(t *testing.T) {
	g := newTestGate(t, Config{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		g.CheckAndRecord(ctx, "user-1", TierFree)
	}

	st, err := g.Peek(ctx, "user-1", TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if st.Used != 4 {
		t.Errorf("Used = %d, want 4 (denied calls recorded)", st.Used)
	}
}

func TestCheckAndRecord_ResetAt(t *testing.T) {
	g := newTestGate(t, Config{})
	before := time.Now().UTC()

	d := g.CheckAndRecord(context.Background(), "user-1", TierFree)

	want := before.Add(24 * time.Hour)
	if d.ResetAt.Before(want.Add(-time.Minute)) || d.ResetAt.After(want.Add(time.Minute)) {
		t.Errorf("ResetAt = %v, want about %v", d.ResetAt, want)
	}
}

func TestCheckAndRecord_IndependentIdentifiers(t *testing.T) {
	g := newTestGate(t, Config{})
	ctx := context.Background()

	g.CheckAndRecord(ctx, "user-1", TierFree)
	g.CheckAndRecord(ctx, "user-1", TierFree)

	if d := g.CheckAndRecord(ctx, "user-2", TierFree); !d.Allowed {
		t.Error("user-2's first call must be unaffected by user-1's denial")
	}
}

// failingStore simulates an unreachable quota store.
type failingStore struct{}

func (failingStore) UpsertQuotaWindow(context.Context, string, string, time.Time, time.Duration) (storage.QuotaWindow, error) {
	return storage.QuotaWindow{}, errors.New("store unreachable")
}

func (failingStore) GetQuotaWindow(context.Context, string) (storage.QuotaWindow, error) {
	return storage.QuotaWindow{}, errors.New("store unreachable")
}

func (failingStore) PurgeQuotaWindows(context.Context, time.Time) (int64, error) {
	return 0, errors.New("store unreachable")
}

func TestCheckAndRecord_FailOpen(t *testing.T) {
	g := NewGate(failingStore{}, Config{FailOpen: true})

	d := g.CheckAndRecord(context.Background(), "user-1", TierFree)
	if !d.Allowed {
		t.Error("fail-open gate must admit when the store is down")
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0 under fail-open", d.Remaining)
	}
}

func TestCheckAndRecord_FailClosed(t *testing.T) {
	g := NewGate(failingStore{}, Config{FailOpen: false})

	d := g.CheckAndRecord(context.Background(), "user-1", TierFree)
	if d.Allowed {
		t.Error("fail-closed gate must deny when the store is down")
	}
}

func TestPeek_UnseenIdentifier(t *testing.T) {
	g := newTestGate(t, Config{})

	st, err := g.Peek(context.Background(), "nobody", TierPaid)
	if err != nil {
		t.Fatal(err)
	}
	if st.Used != 0 || st.Remaining != 100 || st.Limit != 100 {
		t.Errorf("Status = %+v, want full paid allowance", st)
	}
}

func TestPeek_DoesNotRecord(t *testing.T) {
	g := newTestGate(t, Config{})
	ctx := context.Background()

	g.CheckAndRecord(ctx, "user-1", TierFree)
	for i := 0; i < 5; i++ {
		if _, err := g.Peek(ctx, "user-1", TierFree); err != nil {
			t.Fatal(err)
		}
	}

	st, err := g.Peek(ctx, "user-1", TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if st.Used != 1 {
		t.Errorf("Used = %d, want 1; Peek must not record", st.Used)
	}
}

func TestParseTier(t *testing.T) {
	if ParseTier("paid") != TierPaid {
		t.Error("paid not parsed")
	}
	for _, s := range []string{"free", "", "enterprise", "PAID"} {
		if ParseTier(s) != TierFree {
			t.Errorf("ParseTier(%q) should default to free", s)
		}
	}
}

func TestConfigLimitsAreConfiguration(t *testing.T) {
	g := newTestGate(t, Config{FreeLimit: 3, PaidLimit: 5})
	ctx := context.Background()

	var denied int
	for i := 0; i < 4; i++ {
		if d := g.CheckAndRecord(ctx, "user-1", TierFree); !d.Allowed {
			denied = i + 1
		}
	}
	if denied != 4 {
		t.Errorf("free limit 3: first denial on call %d, want 4", denied)
	}
}
