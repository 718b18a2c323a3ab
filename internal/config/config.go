package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Strategy string // "browser" or "search"
	Browser  BrowserConfig
	Search   SearchConfig
	Quota    QuotaConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type BrowserConfig struct {
	Headless    bool
	UserAgent   string
	NavTimeout  string
	RenderGrace string
}

type SearchConfig struct {
	BaseURL string
	APIKey  string
	Timeout string
}

type QuotaConfig struct {
	Window    string
	FreeLimit int
	PaidLimit int
	Retention string
	FailOpen  bool
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

const (
	StrategyBrowser = "browser"
	StrategySearch  = "search"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Strategy: StrategyBrowser,
		Browser: BrowserConfig{
			Headless:    true,
			NavTimeout:  "30s",
			RenderGrace: "3s",
		},
		Search: SearchConfig{
			BaseURL: "https://serpapi.com",
			Timeout: "30s",
		},
		Quota: QuotaConfig{
			Window:    "24h",
			FreeLimit: 1,
			PaidLimit: 100,
			Retention: "48h",
			FailOpen:  true,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.prospector.app) and
// secrets fall back to macOS Keychain. On Linux the backend is a JSON file
// at $XDG_CONFIG_HOME/prospector/config.json and secrets fall back to a
// secrets file under $XDG_DATA_HOME.
//
// Environment variables (PROSPECTOR_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the search API key if still empty.
	// The key is only required when the search strategy is selected, so a
	// missing key is not a load error.
	if cfg.Search.APIKey == "" {
		if key, err := kc.Get("prospector", "search_api_key"); err == nil && key != "" {
			cfg.Search.APIKey = key
		}
	}

	return cfg, nil
}

// Validate checks the fields a running server depends on. Called by the
// serve path, not by Load, so read-only commands work with a partial config.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Strategy != StrategyBrowser && c.Strategy != StrategySearch {
		return fmt.Errorf("unknown strategy %q (want %q or %q)", c.Strategy, StrategyBrowser, StrategySearch)
	}
	if c.Strategy == StrategySearch && c.Search.APIKey == "" {
		return fmt.Errorf("search strategy selected but no API key configured; set PROSPECTOR_SEARCH_API_KEY%s", apiKeyHint())
	}
	for _, d := range []struct {
		key, val string
	}{
		{"browser.nav_timeout", c.Browser.NavTimeout},
		{"browser.render_grace", c.Browser.RenderGrace},
		{"search.timeout", c.Search.Timeout},
		{"quota.window", c.Quota.Window},
		{"quota.retention", c.Quota.Retention},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", d.key, err)
		}
	}
	if c.Quota.FreeLimit <= 0 || c.Quota.PaidLimit <= 0 {
		return fmt.Errorf("quota limits must be positive (free=%d paid=%d)", c.Quota.FreeLimit, c.Quota.PaidLimit)
	}
	return nil
}

// Duration returns a parsed duration field. Callers run Validate first, so
// a parse failure here falls back to the given default instead of erroring.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
