// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package auth

import (
	"context"

	"github.com/tomtom215/squadapi/internal/models"
)

type contextKey string

// PrincipalContextKey holds the *Principal of an authenticated request.
const PrincipalContextKey contextKey = "principal"

// Principal is the resolved caller of a request.
type Principal struct {
	User   *models.User
	Claims *Claims
}

// UserID returns the acting user's ID.
func (p *Principal) UserID() string {
	return p.User.ID
}

// ImpersonatedBy returns the real user behind an impersonation session, or "".
func (p *Principal) ImpersonatedBy() string {
	if p.Claims == nil {
		return ""
	}
	return p.Claims.ImpersonatedBy
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext returns the principal stored by the authentication
// middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return p, ok && p != nil && p.User != nil
}
