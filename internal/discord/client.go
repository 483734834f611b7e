// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package discord talks to the community Discord bot service. Calls are
// authenticated with a short-lived HS256 service token and guarded by a
// circuit breaker so a bot outage does not back up event handling.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
)

const breakerName = "discord-bot"

// Notifier pushes community changes to Discord.
type Notifier interface {
	NotifyStatus(ctx context.Context, n StatusNotice) error
	NotifyArchived(ctx context.Context, n ArchiveNotice) error
	NotifyRequest(ctx context.Context, n RequestNotice) error
}

// StatusNotice asks the bot to reflect a user's availability, e.g. an OOO
// nickname suffix.
type StatusNotice struct {
	UserID    string `json:"user_id"`
	DiscordID string `json:"discord_id"`
	State     string `json:"state"`
	Message   string `json:"message,omitempty"`
	Until     int64  `json:"until,omitempty"`
}

// ArchiveNotice asks the bot to drop member roles from an archived user.
type ArchiveNotice struct {
	UserID    string `json:"user_id"`
	DiscordID string `json:"discord_id"`
	Reason    string `json:"reason,omitempty"`
}

// RequestNotice announces a request lifecycle change in the reviewers channel.
type RequestNotice struct {
	RequestID   string `json:"request_id"`
	Type        string `json:"type"`
	State       string `json:"state"`
	RequestedBy string `json:"requested_by"`
	ReviewedBy  string `json:"reviewed_by,omitempty"`
}

// New returns a Nop notifier when Discord is disabled.
func New(cfg *config.DiscordConfig) Notifier {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewClient(cfg)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) NotifyStatus(context.Context, StatusNotice) error    { return nil }
func (Nop) NotifyArchived(context.Context, ArchiveNotice) error { return nil }
func (Nop) NotifyRequest(context.Context, RequestNotice) error  { return nil }

// Client is the HTTP implementation of Notifier.
type Client struct {
	baseURL string
	secret  []byte
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[interface{}]
}

// NewClient creates a client with circuit breaker protection. The breaker
// opens after 5 consecutive failures and probes again after 30 seconds.
// Outbound calls are paced by a token bucket (5/s, burst 10 unless set).
func NewClient(cfg *config.DiscordConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limit, burst := rate.Limit(cfg.RateLimit), cfg.RateBurst
	if limit <= 0 {
		limit = 5
	}
	if burst <= 0 {
		burst = 10
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.Secret),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
	}
}

// NotifyStatus implements Notifier.
func (c *Client) NotifyStatus(ctx context.Context, n StatusNotice) error {
	return c.post(ctx, "/users/status", n)
}

// NotifyArchived implements Notifier.
func (c *Client) NotifyArchived(ctx context.Context, n ArchiveNotice) error {
	return c.post(ctx, "/members/archive", n)
}

// NotifyRequest implements Notifier.
func (c *Client) NotifyRequest(ctx context.Context, n RequestNotice) error {
	return c.post(ctx, "/requests/notify", n)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "throttled").Inc()
		return fmt.Errorf("discord %s: %w", path, err)
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, body)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	token, err := c.serviceToken()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) serviceToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "squadapi",
		Audience:  jwt.ClaimStrings{"discord-bot"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign discord service token: %w", err)
	}
	return signed, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
