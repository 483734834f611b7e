// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package auth issues and verifies session tokens, resolves the calling user
// from a request, and runs the GitHub OAuth login flow.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/squadapi/internal/config"
)

// Claims are the session token claims. ImpersonatedBy and
// ImpersonationRequestID are set only on tokens issued when an impersonation
// starts; UserID is then the impersonated user.
type Claims struct {
	UserID                 string `json:"userId"`
	ImpersonatedBy         string `json:"impersonated_by,omitempty"`
	ImpersonationRequestID string `json:"impersonation_request_id,omitempty"`
	jwt.RegisteredClaims
}

// IsImpersonation reports whether the token belongs to an impersonation session.
func (c *Claims) IsImpersonation() bool {
	return c.ImpersonatedBy != ""
}

// JWTManager signs and verifies HS256 session tokens.
type JWTManager struct {
	secret               []byte
	timeout              time.Duration
	impersonationTimeout time.Duration
	now                  func() time.Time
}

// NewJWTManager creates a token manager with the configured secret and
// lifetimes.
//
// Example:
//
//	jwtManager, err := auth.NewJWTManager(&cfg.Security)
//	if err != nil {
//	    log.Fatal("Failed to initialize JWT manager:", err)
//	}
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	impersonation := cfg.ImpersonationTimeout
	if impersonation <= 0 {
		impersonation = 15 * time.Minute
	}
	return &JWTManager{
		secret:               []byte(cfg.JWTSecret),
		timeout:              cfg.SessionTimeout,
		impersonationTimeout: impersonation,
		now:                  time.Now,
	}, nil
}

// SessionTimeout is the lifetime of regular session tokens.
func (m *JWTManager) SessionTimeout() time.Duration {
	return m.timeout
}

// GenerateToken issues a regular session token for userID.
func (m *JWTManager) GenerateToken(userID string) (string, error) {
	return m.sign(&Claims{UserID: userID}, m.timeout)
}

// GenerateImpersonationToken issues a short-lived token that acts as
// targetID on behalf of byUserID. The token is valid only while the
// impersonation request requestID is running.
func (m *JWTManager) GenerateImpersonationToken(targetID, byUserID, requestID string) (string, error) {
	if targetID == byUserID {
		return "", errors.New("cannot impersonate self")
	}
	if requestID == "" {
		return "", errors.New("impersonation request id is required")
	}
	return m.sign(&Claims{UserID: targetID, ImpersonatedBy: byUserID, ImpersonationRequestID: requestID}, m.impersonationTimeout)
}

func (m *JWTManager) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, algorithm and time claims of
// tokenString and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
