// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"context"
	"time"

	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/challenges"
	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/crypto"
	"github.com/tomtom215/squadapi/internal/recruiters"
	"github.com/tomtom215/squadapi/internal/requests"
	"github.com/tomtom215/squadapi/internal/shorturl"
	"github.com/tomtom215/squadapi/internal/tasks"
	"github.com/tomtom215/squadapi/internal/users"
)

// OAuthProvider is the GitHub login flow. *auth.GitHubClient satisfies it.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubProfile, error)
}

// Pinger reports store reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Config     *config.Config
	Store      Pinger
	Authz      authz.Authorizer
	Auth       *auth.Authenticator
	Tokens     *auth.JWTManager
	Cookies    *auth.CookieWriter
	GitHub     OAuthProvider
	Users      *users.Service
	Tasks      *tasks.Service
	Requests   *requests.Service
	Crypto     *crypto.Service
	ShortURLs  *shorturl.Service
	Recruiters *recruiters.Service
	Challenges *challenges.Service
	Logs       *audit.Service
}

// Handler serves every route.
type Handler struct {
	cfg        *config.Config
	store      Pinger
	authz      authz.Authorizer
	auth       *auth.Authenticator
	tokens     *auth.JWTManager
	cookies    *auth.CookieWriter
	github     OAuthProvider
	users      *users.Service
	tasks      *tasks.Service
	requests   *requests.Service
	crypto     *crypto.Service
	shortURLs  *shorturl.Service
	recruiters *recruiters.Service
	challenges *challenges.Service
	logs       *audit.Service
	startTime  time.Time
}

// NewHandler wires the handlers to d.
func NewHandler(d Deps) *Handler {
	return &Handler{
		cfg:        d.Config,
		store:      d.Store,
		authz:      d.Authz,
		auth:       d.Auth,
		tokens:     d.Tokens,
		cookies:    d.Cookies,
		github:     d.GitHub,
		users:      d.Users,
		tasks:      d.Tasks,
		requests:   d.Requests,
		crypto:     d.Crypto,
		shortURLs:  d.ShortURLs,
		recruiters: d.Recruiters,
		challenges: d.Challenges,
		logs:       d.Logs,
		startTime:  time.Now(),
	}
}
