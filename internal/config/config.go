// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package config loads Squad API configuration with Koanf v2.
//
// Sources are layered, highest priority last:
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/squadapi/config.yaml)
//  3. Environment variables (SECTION_KEY maps to section.key)
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	GitHub    GitHubConfig    `koanf:"github"`
	Discord   DiscordConfig   `koanf:"discord"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Events    EventsConfig    `koanf:"events"`
	Wallet    WalletConfig    `koanf:"wallet"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// PublicURL is used to build absolute short URLs and OAuth callbacks.
	PublicURL   string `koanf:"public_url"`
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds document store settings.
type DatabaseConfig struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
	// SyncWrites trades throughput for durability on every commit.
	SyncWrites bool `koanf:"sync_writes"`
}

// SecurityConfig holds authentication, CORS and rate-limit settings.
type SecurityConfig struct {
	JWTSecret            string        `koanf:"jwt_secret"`
	SessionTimeout       time.Duration `koanf:"session_timeout"`
	ImpersonationTimeout time.Duration `koanf:"impersonation_timeout"`
	CookieName           string        `koanf:"cookie_name"`
	CookieDomain         string        `koanf:"cookie_domain"`
	CookieSecure         bool          `koanf:"cookie_secure"`
	CORSOrigins          []string      `koanf:"cors_origins"`
	RateLimitReqs        int           `koanf:"rate_limit_reqs"`
	RateLimitWindow      time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled    bool          `koanf:"rate_limit_disabled"`
	CasbinModelPath      string        `koanf:"casbin_model_path"`
	CasbinPolicyPath     string        `koanf:"casbin_policy_path"`
	// BootstrapSuperUserIDs are GitHub account IDs granted super_user on login.
	BootstrapSuperUserIDs []string `koanf:"bootstrap_super_users"`
}

// GitHubConfig holds the OAuth application used for login.
type GitHubConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	CallbackURL  string `koanf:"callback_url"`
	// RedirectAfterLogin is where the browser lands once the session cookie is set.
	RedirectAfterLogin string `koanf:"redirect_after_login"`
	// AuthURL, TokenURL and APIURL override github.com endpoints (tests, GHE).
	AuthURL  string `koanf:"auth_url"`
	TokenURL string `koanf:"token_url"`
	APIURL   string `koanf:"api_url"`
}

// DiscordConfig holds the Discord bot service client settings.
type DiscordConfig struct {
	Enabled bool          `koanf:"enabled"`
	BaseURL string        `koanf:"base_url"`
	Secret  string        `koanf:"secret"`
	Timeout time.Duration `koanf:"timeout"`
	// RateLimit caps outbound calls per second; RateBurst allows short spikes.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// SchedulerConfig holds cron specs for background jobs.
type SchedulerConfig struct {
	Enabled        bool   `koanf:"enabled"`
	StatusSpec     string `koanf:"status_spec"`
	AuctionSpec    string `koanf:"auction_spec"`
	GCSpec         string `koanf:"gc_spec"`
	RunImmediately bool   `koanf:"run_immediately"`
}

// EventsConfig holds the in-process event bus settings.
type EventsConfig struct {
	BufferSize int64  `koanf:"buffer_size"`
	Topic      string `koanf:"topic"`
}

// WalletConfig holds starting balances for lazily created wallets.
type WalletConfig struct {
	StartingDinero int64 `koanf:"starting_dinero"`
	StartingNeelam int64 `koanf:"starting_neelam"`
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// defaultConfig returns the built-in defaults applied before file and env layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			PublicURL:       "http://localhost:3000",
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path: "/data/squadapi",
		},
		Security: SecurityConfig{
			SessionTimeout:       30 * 24 * time.Hour,
			ImpersonationTimeout: 15 * time.Minute,
			CookieName:           "squad-session",
			CookieSecure:         true,
			CORSOrigins:          []string{},
			RateLimitReqs:        100,
			RateLimitWindow:      time.Minute,
		},
		GitHub: GitHubConfig{
			RedirectAfterLogin: "/",
		},
		Discord: DiscordConfig{
			Timeout:   5 * time.Second,
			RateLimit: 5,
			RateBurst: 10,
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			StatusSpec:  "@every 5m",
			AuctionSpec: "@every 1m",
			GCSpec:      "@every 1h",
		},
		Events: EventsConfig{
			BufferSize: 256,
			Topic:      "squad.events",
		},
		Wallet: WalletConfig{
			StartingDinero: 1000,
			StartingNeelam: 0,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
