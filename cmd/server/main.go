// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package main is the entry point for the Squad API server.
//
// Squad API is the backend of the community platform: GitHub sign-in,
// member and role tracking, user statuses, the request workflows (out of
// office, task extension, onboarding extension, impersonation and task
// requests), the toy economy (wallets, exchange, auctions, shop, stocks) and
// small utilities (short URLs, recruiter intros, challenges).
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Logging: zerolog global logger
//  3. Database: BadgerDB document store
//  4. Authorization: Casbin enforcer (embedded model and policy)
//  5. Event bus: Watermill GoChannel pub/sub and the dispatcher
//  6. Services: users, tasks, requests, economy, utilities
//  7. Scheduler: status, auction settlement and store GC jobs (robfig/cron)
//  8. HTTP server: chi router
//
// Long-running components run under a suture supervisor tree:
//
//	squadapi
//	├── data-layer       scheduler
//	├── messaging-layer  event-dispatcher
//	└── api-layer        http-server
//
// # Configuration
//
// Required:
//   - JWT_SECRET: 32+ character secret for session tokens
//   - GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET: OAuth application for sign-in
//
// Common:
//   - PORT (default 3000), DATABASE_PATH (default /data/squadapi)
//   - SECURITY_CORS_ORIGINS: comma separated allowed origins
//   - SECURITY_BOOTSTRAP_SUPER_USERS: GitHub IDs granted super_user on login
//   - DISCORD_ENABLED, DISCORD_BASE_URL, DISCORD_SECRET: bot notifications
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
// server (in-flight requests get server.shutdown_timeout), the dispatcher and
// the scheduler, then the event bus and the store are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/squadapi/internal/api"
	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/challenges"
	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/crypto"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/discord"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
	"github.com/tomtom215/squadapi/internal/recruiters"
	"github.com/tomtom215/squadapi/internal/requests"
	"github.com/tomtom215/squadapi/internal/scheduler"
	"github.com/tomtom215/squadapi/internal/shorturl"
	"github.com/tomtom215/squadapi/internal/supervisor"
	"github.com/tomtom215/squadapi/internal/supervisor/services"
	"github.com/tomtom215/squadapi/internal/tasks"
	"github.com/tomtom215/squadapi/internal/users"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.SetAppInfo(version, runtime.Version())

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("discord_enabled", cfg.Discord.Enabled).
		Msg("Starting Squad API with supervisor tree")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until the supervisor tree stops.
// Returning instead of exiting lets the deferred closes run.
func run(cfg *config.Config) error {
	store, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		ModelPath:  cfg.Security.CasbinModelPath,
		PolicyPath: cfg.Security.CasbinPolicyPath,
	})
	if err != nil {
		return fmt.Errorf("initialize authorization: %w", err)
	}
	defer enforcer.Close()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("initialize session tokens: %w", err)
	}

	bus := events.NewBus(cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	usersSvc := users.NewService(store, bus, cfg.Security.BootstrapSuperUserIDs)
	cryptoSvc := crypto.NewService(crypto.Config{Store: store, Wallet: cfg.Wallet, Events: bus})
	requestsSvc := requests.NewService(requests.Config{
		Store:  store,
		Authz:  enforcer,
		Events: bus,
		Tokens: jwtManager,
	})

	dispatcher := events.NewDispatcher(bus, events.DefaultDispatcherConfig())
	discord.Register(dispatcher, discord.New(&cfg.Discord), usersSvc)

	var github api.OAuthProvider
	if gh := auth.NewGitHubClient(&cfg.GitHub); gh != nil {
		github = gh
	} else {
		logging.Warn().Msg("GitHub OAuth is not configured, sign-in is disabled")
	}

	handler := api.NewHandler(api.Deps{
		Config:     cfg,
		Store:      store,
		Authz:      enforcer,
		Auth:       auth.NewAuthenticator(jwtManager, usersSvc, cfg.Security.CookieName, auth.WithImpersonationCheck(requestsSvc)),
		Tokens:     jwtManager,
		Cookies:    auth.NewCookieWriter(&cfg.Security),
		GitHub:     github,
		Users:      usersSvc,
		Tasks:      tasks.NewService(store, enforcer, time.Now),
		Requests:   requestsSvc,
		Crypto:     cryptoSvc,
		ShortURLs:  shorturl.NewService(store, time.Now),
		Recruiters: recruiters.NewService(store, time.Now),
		Challenges: challenges.NewService(store, time.Now),
		Logs:       audit.NewService(store),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	// === ADD SERVICES TO SUPERVISOR TREE ===

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.RunImmediately,
			scheduler.Jobs(cfg.Scheduler, usersSvc, cryptoSvc, store)...)
		if err != nil {
			return fmt.Errorf("initialize scheduler: %w", err)
		}
		tree.AddDataService(services.NewLifecycleService("scheduler", sched))
		logging.Info().Msg("Scheduler added to supervisor tree")
	} else {
		logging.Info().Msg("Scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	tree.AddMessagingService(dispatcher)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 { //nolint:errcheck // report is best effort
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}
