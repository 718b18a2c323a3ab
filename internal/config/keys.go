package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PROSPECTOR_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "PROSPECTOR_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "strategy", typ: kString, env: "PROSPECTOR_STRATEGY",
		apply:   func(cfg *Config, v any) { cfg.Strategy = v.(string) },
		extract: func(cfg Config) any { return cfg.Strategy },
	},
	{
		key: "browser.headless", typ: kBool, env: "PROSPECTOR_BROWSER_HEADLESS",
		apply:   func(cfg *Config, v any) { cfg.Browser.Headless = v.(bool) },
		extract: func(cfg Config) any { return cfg.Browser.Headless },
	},
	{
		key: "browser.user_agent", typ: kString, env: "PROSPECTOR_BROWSER_USER_AGENT",
		apply:   func(cfg *Config, v any) { cfg.Browser.UserAgent = v.(string) },
		extract: func(cfg Config) any { return cfg.Browser.UserAgent },
	},
	{
		key: "browser.nav_timeout", typ: kString, env: "PROSPECTOR_BROWSER_NAV_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Browser.NavTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Browser.NavTimeout },
	},
	{
		key: "browser.render_grace", typ: kString, env: "PROSPECTOR_BROWSER_RENDER_GRACE",
		apply:   func(cfg *Config, v any) { cfg.Browser.RenderGrace = v.(string) },
		extract: func(cfg Config) any { return cfg.Browser.RenderGrace },
	},
	{
		key: "search.base_url", typ: kString, env: "PROSPECTOR_SEARCH_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Search.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.BaseURL },
	},
	{
		key: "search.api_key", typ: kString, env: "PROSPECTOR_SEARCH_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Search.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.APIKey },
	},
	{
		key: "search.timeout", typ: kString, env: "PROSPECTOR_SEARCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Search.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.Timeout },
	},
	{
		key: "quota.window", typ: kString, env: "PROSPECTOR_QUOTA_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.Quota.Window = v.(string) },
		extract: func(cfg Config) any { return cfg.Quota.Window },
	},
	{
		key: "quota.free_limit", typ: kInt, env: "PROSPECTOR_QUOTA_FREE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Quota.FreeLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Quota.FreeLimit },
	},
	{
		key: "quota.paid_limit", typ: kInt, env: "PROSPECTOR_QUOTA_PAID_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Quota.PaidLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Quota.PaidLimit },
	},
	{
		key: "quota.retention", typ: kString, env: "PROSPECTOR_QUOTA_RETENTION",
		apply:   func(cfg *Config, v any) { cfg.Quota.Retention = v.(string) },
		extract: func(cfg Config) any { return cfg.Quota.Retention },
	},
	{
		key: "quota.fail_open", typ: kBool, env: "PROSPECTOR_QUOTA_FAIL_OPEN",
		apply:   func(cfg *Config, v any) { cfg.Quota.FailOpen = v.(bool) },
		extract: func(cfg Config) any { return cfg.Quota.FailOpen },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PROSPECTOR_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PROSPECTOR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
