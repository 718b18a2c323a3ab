package scrape

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassifyNavError(t *testing.T) {
	res := classifyNavError(context.DeadlineExceeded, "https://www.linkedin.com/in/janedoe", 30*time.Second)
	if res.Failure == nil || res.Failure.Kind != KindTimeout {
		t.Errorf("deadline exceeded classified as %+v, want timeout", res.Failure)
	}

	res = classifyNavError(errors.New("page crashed"), "https://www.linkedin.com/in/janedoe", 30*time.Second)
	if res.Failure == nil || res.Failure.Kind != KindInternal {
		t.Errorf("unexpected error classified as %+v, want internal", res.Failure)
	}
}

func TestManagerShutdown_BeforeLaunchIsSafe(t *testing.T) {
	m := NewManager(BrowserConfig{Headless: true})
	m.Shutdown()
	m.Shutdown()
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(BrowserConfig{})
	if m.cfg.NavTimeout != 30*time.Second {
		t.Errorf("NavTimeout = %s", m.cfg.NavTimeout)
	}
	if m.cfg.RenderGrace != 3*time.Second {
		t.Errorf("RenderGrace = %s", m.cfg.RenderGrace)
	}
	if m.cfg.UserAgent == "" {
		t.Error("UserAgent default missing")
	}
}

func TestRetryable(t *testing.T) {
	retryable := []ErrorKind{KindTimeout, KindUpstreamError, KindUpstreamRateLimited}
	for _, k := range retryable {
		if !Retryable(k) {
			t.Errorf("Retryable(%s) = false", k)
		}
	}
	terminal := []ErrorKind{KindInvalidURL, KindInsufficientData, KindNotFound, KindAuthConfig, KindInternal}
	for _, k := range terminal {
		if Retryable(k) {
			t.Errorf("Retryable(%s) = true", k)
		}
	}
}
