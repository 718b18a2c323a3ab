package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/singleflight"

	"github.com/scoutly/prospector/internal/extract"
	"github.com/scoutly/prospector/internal/linkedin"
	"github.com/scoutly/prospector/internal/profile"
)

const browserStrategyName = "browser"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// BrowserConfig tunes the headless browser strategy.
type BrowserConfig struct {
	Headless    bool
	UserAgent   string
	NavTimeout  time.Duration // hard bound on navigate + render + capture
	RenderGrace time.Duration // extra wait after load for client-side rendering
}

// Manager owns the process-wide browser. One Chrome instance is shared by
// all acquisitions; each acquisition opens its own tab. Launch is lazy and
// collapsed through singleflight so concurrent first callers share one
// in-flight launch, while a failed launch stays retryable on the next call
// (which sync.Once would not allow).
type Manager struct {
	cfg BrowserConfig

	launch singleflight.Group

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewManager creates an unlaunched browser manager. The browser starts on
// the first acquisition, not here.
func NewManager(cfg BrowserConfig) *Manager {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.RenderGrace <= 0 {
		cfg.RenderGrace = 3 * time.Second
	}
	return &Manager{cfg: cfg}
}

// browserContext returns the shared browser context, launching Chrome on
// first use.
func (m *Manager) browserContext() (context.Context, error) {
	m.mu.Lock()
	if m.browserCtx != nil {
		ctx := m.browserCtx
		m.mu.Unlock()
		return ctx, nil
	}
	m.mu.Unlock()

	v, err, _ := m.launch.Do("launch", func() (any, error) {
		return m.launchBrowser()
	})
	if err != nil {
		return nil, err
	}
	return v.(context.Context), nil
}

func (m *Manager) launchBrowser() (context.Context, error) {
	slog.Info("launching headless browser", "headless", m.cfg.Headless)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(m.cfg.UserAgent),
		chromedp.WindowSize(1280, 800),
	)

	// The browser is rooted in the background context: it outlives any
	// single request and is torn down only by Shutdown.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	m.mu.Lock()
	m.browserCtx = browserCtx
	m.cancelBrowser = cancelBrowser
	m.cancelAlloc = cancelAlloc
	m.mu.Unlock()

	return browserCtx, nil
}

// Shutdown closes the browser if it was launched. Called from the host's
// shutdown sequence; safe to call multiple times or before first use.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browserCtx == nil {
		return
	}
	slog.Info("shutting down browser")
	m.cancelBrowser()
	m.cancelAlloc()
	m.browserCtx = nil
	m.cancelBrowser = nil
	m.cancelAlloc = nil
}

// BrowserStrategy renders the profile page in the shared headless browser
// and extracts fields from the live DOM.
type BrowserStrategy struct {
	mgr *Manager
}

// NewBrowserStrategy creates the strategy around a browser manager.
func NewBrowserStrategy(mgr *Manager) *BrowserStrategy {
	return &BrowserStrategy{mgr: mgr}
}

func (s *BrowserStrategy) Name() string { return browserStrategyName }

// Acquire navigates to the profile page, waits out the render grace period,
// captures the DOM, and runs the extraction ruleset. The tab is closed on
// every path; the shared browser stays up.
func (s *BrowserStrategy) Acquire(ctx context.Context, username string) Result {
	browserCtx, err := s.mgr.browserContext()
	if err != nil {
		return Fail(browserStrategyName, KindInternal, "browser unavailable: %v", err)
	}

	tab, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	// Propagate caller cancellation into the tab so an abandoned request
	// does not keep a page loading.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tab, s.mgr.cfg.NavTimeout)
	defer cancelTimeout()

	pageURL := linkedin.ProfileURL(username)
	slog.Debug("browser navigate", "url", pageURL, "timeout", s.mgr.cfg.NavTimeout)

	var html string
	err = chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
			"Accept-Encoding": "gzip, deflate, br",
		}),
		chromedp.Navigate(pageURL),
		// LinkedIn renders progressively after the load event; give the
		// client-side render time to fill the DOM.
		chromedp.Sleep(s.mgr.cfg.RenderGrace),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return classifyNavError(err, pageURL, s.mgr.cfg.NavTimeout)
	}

	slog.Debug("browser extract", "url", pageURL, "html_bytes", len(html))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Fail(browserStrategyName, KindInternal, "parsing rendered page: %v", err)
	}

	rec, err := profile.Assemble(extract.FromDOM(doc))
	if errors.Is(err, profile.ErrInsufficientData) {
		return Fail(browserStrategyName, KindInsufficientData,
			"no extractable name or headline for %q; the profile is likely private or login-gated", username)
	}
	if err != nil {
		return Fail(browserStrategyName, KindInternal, "assembling record: %v", err)
	}

	return Success(browserStrategyName, rec)
}

func classifyNavError(err error, pageURL string, timeout time.Duration) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Fail(browserStrategyName, KindTimeout, "navigation to %s timed out after %s", pageURL, timeout)
	}
	return Fail(browserStrategyName, KindInternal, "rendering %s: %v", pageURL, err)
}
