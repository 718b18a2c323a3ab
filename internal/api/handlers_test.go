package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scoutly/prospector/internal/pipeline"
	"github.com/scoutly/prospector/internal/profile"
	"github.com/scoutly/prospector/internal/quota"
	"github.com/scoutly/prospector/internal/scrape"
	"github.com/scoutly/prospector/internal/storage"
)

const testToken = "test-token"

type stubAcquirer struct {
	outcome  pipeline.Outcome
	lastURL  string
	lastID   string
	lastTier quota.Tier
}

func (s *stubAcquirer) Acquire(_ context.Context, rawURL, identifier string, tier quota.Tier) pipeline.Outcome {
	s.lastURL = rawURL
	s.lastID = identifier
	s.lastTier = tier
	return s.outcome
}

type stubGate struct {
	decision quota.Decision
	status   quota.Status
	lastID   string
}

func (g *stubGate) CheckAndRecord(_ context.Context, identifier string, tier quota.Tier) quota.Decision {
	g.lastID = identifier
	return g.decision
}

func (g *stubGate) Peek(_ context.Context, identifier string, tier quota.Tier) (quota.Status, error) {
	g.lastID = identifier
	return g.status, nil
}

type stubAudit struct {
	entries []storage.Acquisition
}

func (a *stubAudit) ListAcquisitions(_ context.Context, limit, offset int) ([]storage.Acquisition, error) {
	return a.entries, nil
}

func successOutcome() pipeline.Outcome {
	dec := quota.Decision{Allowed: true, Remaining: 99, ResetAt: time.Now().Add(time.Hour)}
	return pipeline.Outcome{
		Username: "janedoe",
		Result:   scrape.Success("search", profile.Record{FullName: "Jane Doe", Headline: "Engineer"}),
		Decision: &dec,
	}
}

func newTestHandler(acq *stubAcquirer, gate *stubGate, audit AuditReader) http.Handler {
	return NewHandler(Deps{Acquirer: acq, Gate: gate, Audit: audit, Token: testToken})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthUnauthenticated(t *testing.T) {
	h := newTestHandler(&stubAcquirer{}, &stubGate{}, nil)
	w := doRequest(t, h, http.MethodGet, "/health", "", false)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestBearerAuthRequired(t *testing.T) {
	h := newTestHandler(&stubAcquirer{outcome: successOutcome()}, &stubGate{}, nil)

	paths := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/acquisitions"},
		{http.MethodGet, "/v1/acquisitions"},
		{http.MethodGet, "/v1/quota/user-1"},
		{http.MethodPost, "/v1/quota/user-1/check"},
	}
	for _, p := range paths {
		w := doRequest(t, h, p.method, p.path, "", false)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestAcquire_Success(t *testing.T) {
	acq := &stubAcquirer{outcome: successOutcome()}
	h := newTestHandler(acq, &stubGate{}, nil)

	w := doRequest(t, h, http.MethodPost, "/v1/acquisitions",
		`{"url":"https://linkedin.com/in/janedoe","identifier":"user-1","tier":"paid"}`, true)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var out pipeline.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Result.Profile == nil || out.Result.Profile.FullName != "Jane Doe" {
		t.Errorf("profile = %+v", out.Result.Profile)
	}
	if acq.lastID != "user-1" || acq.lastTier != quota.TierPaid {
		t.Errorf("acquirer saw (%q, %q)", acq.lastID, acq.lastTier)
	}
}

func TestAcquire_IdentifierDefaultsToCallerIP(t *testing.T) {
	acq := &stubAcquirer{outcome: successOutcome()}
	h := newTestHandler(acq, &stubGate{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/acquisitions",
		strings.NewReader(`{"url":"https://linkedin.com/in/janedoe"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.RemoteAddr = "192.0.2.7:51234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if acq.lastID != "192.0.2.7" {
		t.Errorf("identifier = %q, want caller IP", acq.lastID)
	}
}

func TestAcquire_FailureStatusMapping(t *testing.T) {
	cases := []struct {
		kind scrape.ErrorKind
		want int
	}{
		{scrape.KindInvalidURL, http.StatusBadRequest},
		{scrape.KindNotFound, http.StatusNotFound},
		{scrape.KindInsufficientData, http.StatusUnprocessableEntity},
		{scrape.KindUpstreamRateLimited, http.StatusTooManyRequests},
		{scrape.KindTimeout, http.StatusGatewayTimeout},
		{scrape.KindAuthConfig, http.StatusBadGateway},
		{scrape.KindUpstreamError, http.StatusBadGateway},
		{scrape.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		acq := &stubAcquirer{outcome: pipeline.Outcome{
			Result: scrape.Fail("search", tc.kind, "boom"),
		}}
		h := newTestHandler(acq, &stubGate{}, nil)
		w := doRequest(t, h, http.MethodPost, "/v1/acquisitions", `{"url":"x.com/in/x"}`, true)
		if w.Code != tc.want {
			t.Errorf("kind %s: status = %d, want %d", tc.kind, w.Code, tc.want)
		}
	}
}

func TestAcquire_FailureBodyCarriesKindAndRetryable(t *testing.T) {
	acq := &stubAcquirer{outcome: pipeline.Outcome{
		Result: scrape.Fail("browser", scrape.KindTimeout, "navigation timed out"),
	}}
	h := newTestHandler(acq, &stubGate{}, nil)

	w := doRequest(t, h, http.MethodPost, "/v1/acquisitions", `{"url":"linkedin.com/in/x"}`, true)

	var body struct {
		Error struct {
			Message   string `json:"message"`
			Kind      string `json:"kind"`
			Retryable bool   `json:"retryable"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Kind != "timeout" || !body.Error.Retryable {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestAcquire_MissingURL(t *testing.T) {
	h := newTestHandler(&stubAcquirer{}, &stubGate{}, nil)
	w := doRequest(t, h, http.MethodPost, "/v1/acquisitions", `{}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestQuotaStatus(t *testing.T) {
	gate := &stubGate{status: quota.Status{Identifier: "user-1", Tier: quota.TierPaid, Used: 3, Limit: 100, Remaining: 97}}
	h := newTestHandler(&stubAcquirer{}, gate, nil)

	w := doRequest(t, h, http.MethodGet, "/v1/quota/user-1?tier=paid", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st quota.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Remaining != 97 {
		t.Errorf("Remaining = %d", st.Remaining)
	}
	if gate.lastID != "user-1" {
		t.Errorf("gate saw %q", gate.lastID)
	}
}

func TestQuotaCheck_Allowed(t *testing.T) {
	gate := &stubGate{decision: quota.Decision{Allowed: true, Remaining: 4}}
	h := newTestHandler(&stubAcquirer{}, gate, nil)

	w := doRequest(t, h, http.MethodPost, "/v1/quota/user-1/check", `{"tier":"paid"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var dec quota.Decision
	if err := json.Unmarshal(w.Body.Bytes(), &dec); err != nil {
		t.Fatal(err)
	}
	if !dec.Allowed || dec.Remaining != 4 {
		t.Errorf("decision = %+v", dec)
	}
}

func TestQuotaCheck_DeniedReturns429(t *testing.T) {
	gate := &stubGate{decision: quota.Decision{Allowed: false}}
	h := newTestHandler(&stubAcquirer{}, gate, nil)

	w := doRequest(t, h, http.MethodPost, "/v1/quota/user-1/check", "", true)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestListAcquisitions(t *testing.T) {
	audit := &stubAudit{entries: []storage.Acquisition{
		{ID: "a1", Username: "janedoe", Strategy: "search", Status: "success"},
	}}
	h := newTestHandler(&stubAcquirer{}, &stubGate{}, audit)

	w := doRequest(t, h, http.MethodGet, "/v1/acquisitions?limit=5", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var entries []storage.Acquisition
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Username != "janedoe" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestListAcquisitions_DisabledWithoutAudit(t *testing.T) {
	h := newTestHandler(&stubAcquirer{}, &stubGate{}, nil)
	w := doRequest(t, h, http.MethodGet, "/v1/acquisitions", "", true)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
