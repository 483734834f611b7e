// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package config

import (
	"errors"
	"fmt"
	"net/url"
)

// MinJWTSecretLength is the shortest accepted HS256 secret.
const MinJWTSecretLength = 32

// Validate checks the configuration for values the server cannot start with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Security.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("security.jwt_secret must be at least %d characters", MinJWTSecretLength))
	}
	if c.Security.SessionTimeout <= 0 {
		errs = append(errs, errors.New("security.session_timeout must be positive"))
	}
	if c.Security.ImpersonationTimeout <= 0 {
		errs = append(errs, errors.New("security.impersonation_timeout must be positive"))
	}
	if c.Security.CookieName == "" {
		errs = append(errs, errors.New("security.cookie_name is required"))
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs <= 0 {
		errs = append(errs, errors.New("security.rate_limit_reqs must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.PublicURL != "" {
		if _, err := url.ParseRequestURI(c.Server.PublicURL); err != nil {
			errs = append(errs, fmt.Errorf("server.public_url: %w", err))
		}
	}

	if !c.Database.InMemory && c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required unless database.in_memory is set"))
	}

	if c.API.DefaultPageSize <= 0 {
		errs = append(errs, errors.New("api.default_page_size must be positive"))
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		errs = append(errs, errors.New("api.max_page_size must be >= api.default_page_size"))
	}

	if c.Discord.Enabled {
		if c.Discord.BaseURL == "" {
			errs = append(errs, errors.New("discord.base_url is required when discord is enabled"))
		}
		if c.Discord.Secret == "" {
			errs = append(errs, errors.New("discord.secret is required when discord is enabled"))
		}
	}

	if c.Wallet.StartingDinero < 0 || c.Wallet.StartingNeelam < 0 {
		errs = append(errs, errors.New("wallet starting balances cannot be negative"))
	}

	if c.IsProduction() && !c.Security.CookieSecure {
		errs = append(errs, errors.New("security.cookie_secure must be true in production"))
	}

	return errors.Join(errs...)
}

// GitHubEnabled reports whether OAuth login is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}
