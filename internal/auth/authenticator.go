// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

var (
	ErrMissingToken = errors.New("missing authentication token")
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrUnknownUser  = errors.New("token user does not exist")

	// ErrSessionEnded is returned for impersonation tokens whose request has
	// been stopped. It wraps ErrInvalidToken.
	ErrSessionEnded = fmt.Errorf("%w: impersonation session has ended", ErrInvalidToken)
)

// IsUnauthenticated reports whether err means the request carries no usable
// session, as opposed to a failure while checking it.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUnknownUser)
}

// ImpersonationChecker reports whether an impersonation request is running.
type ImpersonationChecker interface {
	ImpersonationActive(ctx context.Context, requestID string) (bool, error)
}

// UserLookup loads users by ID.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Authenticator resolves the principal of a request from the session cookie
// or a Bearer Authorization header.
type Authenticator struct {
	jwt           *JWTManager
	users         UserLookup
	impersonation ImpersonationChecker
	cookieName    string
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithImpersonationCheck accepts impersonation tokens while c reports their
// request as running. Without it impersonation tokens are rejected.
func WithImpersonationCheck(c ImpersonationChecker) AuthenticatorOption {
	return func(a *Authenticator) { a.impersonation = c }
}

// NewAuthenticator creates an Authenticator reading cookieName.
func NewAuthenticator(jwtManager *JWTManager, users UserLookup, cookieName string, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{jwt: jwtManager, users: users, cookieName: cookieName}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TokenFromRequest extracts the raw token. The Authorization header wins over
// the cookie when both are present.
func (a *Authenticator) TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
		}
		return token, nil
	}
	cookie, err := r.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingToken
	}
	return cookie.Value, nil
}

// Authenticate validates the request token and loads the acting user.
func (a *Authenticator) Authenticate(r *http.Request) (*Principal, error) {
	raw, err := a.TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	claims, err := a.jwt.ValidateToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.IsImpersonation() {
		if err := a.checkImpersonation(r.Context(), claims); err != nil {
			return nil, err
		}
	}
	user, err := a.users.GetUser(r.Context(), claims.UserID)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownUser, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return &Principal{User: user, Claims: claims}, nil
}

func (a *Authenticator) checkImpersonation(ctx context.Context, claims *Claims) error {
	if a.impersonation == nil || claims.ImpersonationRequestID == "" {
		return ErrSessionEnded
	}
	active, err := a.impersonation.ImpersonationActive(ctx, claims.ImpersonationRequestID)
	if err != nil {
		return fmt.Errorf("check impersonation session: %w", err)
	}
	if !active {
		return ErrSessionEnded
	}
	return nil
}
