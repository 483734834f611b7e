// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package auth

import (
	"net/http"
	"time"

	"github.com/tomtom215/squadapi/internal/config"
)

// StateCookieName carries the OAuth state between login and callback.
const StateCookieName = "squad-oauth-state"

// CookieWriter sets and clears the session and OAuth state cookies.
type CookieWriter struct {
	name   string
	domain string
	secure bool
}

// NewCookieWriter builds a CookieWriter from the security settings.
func NewCookieWriter(cfg *config.SecurityConfig) *CookieWriter {
	return &CookieWriter{name: cfg.CookieName, domain: cfg.CookieDomain, secure: cfg.CookieSecure}
}

// Name returns the session cookie name.
func (c *CookieWriter) Name() string {
	return c.name
}

// SetSession writes the session token cookie.
func (c *CookieWriter) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(c.name, token, int(ttl.Seconds())))
}

// ClearSession expires the session cookie.
func (c *CookieWriter) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(c.name, "", -1))
}

// SetState writes the OAuth state cookie, valid for ten minutes.
func (c *CookieWriter) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, c.cookie(StateCookieName, state, int((10*time.Minute).Seconds())))
}

// ClearState expires the OAuth state cookie.
func (c *CookieWriter) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(StateCookieName, "", -1))
}

func (c *CookieWriter) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
