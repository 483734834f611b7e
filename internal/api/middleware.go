// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
	"github.com/tomtom215/squadapi/internal/models"
)

// ChiMiddleware builds the CORS and rate-limit middleware from the security
// settings.
type ChiMiddleware struct {
	cfg  config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware configures go-chi/cors. Credentials are allowed because
// the session travels in a cookie, so origins must be listed explicitly.
func NewChiMiddleware(cfg config.SecurityConfig) *ChiMiddleware {
	return &ChiMiddleware{
		cfg: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           86400,
		}),
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits requests per client IP. limit overrides the configured
// request count when positive.
func (m *ChiMiddleware) RateLimit(name string, limit int) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if limit <= 0 {
		limit = m.cfg.RateLimitReqs
	}
	window := m.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(name).Inc()
			NewResponseWriter(w, r).TooManyRequests("rate limit exceeded, retry later")
		}),
	)
}

// authenticate rejects requests without a valid session and stores the
// principal in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.auth.Authenticate(r)
		if err != nil && !auth.IsUnauthenticated(err) {
			writeError(w, r, err)
			return
		}
		if err != nil {
			msg := "authentication required"
			if !errors.Is(err, auth.ErrMissingToken) {
				msg = "invalid or expired session"
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Authentication failed")
			}
			NewResponseWriter(w, r).Unauthorized(msg)
			return
		}
		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = logging.ContextWithUserID(ctx, principal.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// impersonationReadOnly allows only safe methods while impersonating, plus
// the request that ends the impersonation.
func impersonationReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if ok && p.ImpersonatedBy() != "" {
			safe := r.Method == http.MethodGet || r.Method == http.MethodHead
			if !safe && !strings.HasSuffix(r.URL.Path, "/impersonation") {
				NewResponseWriter(w, r).Forbidden("impersonation sessions are read-only")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requirePermission answers 403 unless the caller's roles grant (obj, act).
func (h *Handler) requirePermission(obj, act string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil || !h.authz.Allowed(user.RoleNames(), obj, act) {
				NewResponseWriter(w, r).Forbidden("you are not allowed to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentUser returns the authenticated user, or nil on public routes.
func currentUser(r *http.Request) *models.User {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return p.User
}

// realUserID is the user behind the session: the impersonator while
// impersonating, otherwise the session user.
func realUserID(r *http.Request) string {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return ""
	}
	if by := p.ImpersonatedBy(); by != "" {
		return by
	}
	return p.UserID()
}
