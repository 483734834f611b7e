// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/middleware"
)

// Rate limits for routes stricter than the configured default.
const (
	authRateLimit  = 20
	introRateLimit = 10
)

// NewRouter builds the chi router for every route.
func NewRouter(h *Handler) http.Handler {
	mw := NewChiMiddleware(h.cfg.Security)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(middleware.Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/health", h.Health)
	r.Get("/health/ready", h.HealthReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(mw.RateLimit("auth", authRateLimit))
		r.Get("/github/login", h.GitHubLogin)
		r.Get("/github/callback", h.GitHubCallback)
		r.Get("/signout", h.SignOut)
	})

	// Public routes.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit("public", 0))
		r.Get("/s/{code}", h.RedirectShortURL)
		r.Get("/short-urls/{code}", h.GetShortURL)
		r.Get("/members", h.ListMembers)
		r.With(mw.RateLimit("intro", introRateLimit)).Post("/members/{username}/intro", h.AddRecruiterIntro)
	})

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit("api", 0))
		r.Use(h.authenticate)
		r.Use(impersonationReadOnly)
		h.userRoutes(r)
		h.workRoutes(r)
		h.cryptoRoutes(r)
		h.communityRoutes(r)
	})

	return r
}

func (h *Handler) userRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/self", h.Self)
		r.With(h.requirePermission(authz.ObjProfile, authz.ActUpdate)).Patch("/self", h.UpdateSelf)
		r.Get("/status/self", h.SelfStatus)
		r.With(h.requirePermission(authz.ObjStatus, authz.ActUpdate)).Patch("/status/self", h.UpdateSelfStatus)
		r.Get("/username/{username}", h.UserByUsername)
		r.Get("/username/{username}/available", h.UsernameAvailable)
		r.Get("/{id}", h.UserByID)
		r.Get("/{id}/status", h.UserStatus)
		r.With(h.requirePermission(authz.ObjUsers, authz.ActManage)).Patch("/{id}/roles", h.UpdateRoles)
	})

	manageMembers := h.requirePermission(authz.ObjMembers, authz.ActManage)
	r.With(manageMembers).Patch("/members/{username}/move", h.MoveToMember)
	r.With(manageMembers).Patch("/members/{username}/archive", h.ArchiveMember)

	r.With(h.requirePermission(authz.ObjLogs, authz.ActRead)).Get("/logs", h.ListLogs)
}

func (h *Handler) workRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.With(h.requirePermission(authz.ObjTasks, authz.ActManage)).Post("/", h.CreateTask)
		r.Get("/{id}", h.GetTask)
		r.Patch("/{id}", h.UpdateTask)
	})

	r.Route("/requests", func(r chi.Router) {
		r.Get("/", h.ListRequests)
		r.With(h.requirePermission(authz.ObjRequests, authz.ActCreate)).Post("/", h.CreateRequest)
		r.Get("/{id}", h.GetRequest)
		r.Put("/{id}", h.ReviewRequest)
		r.Patch("/{id}/impersonation", h.Impersonate)
	})
}

func (h *Handler) cryptoRoutes(r chi.Router) {
	trade := h.requirePermission(authz.ObjWallets, authz.ActTrade)

	r.Get("/wallet", h.Wallet)
	r.With(h.requirePermission(authz.ObjWallets, authz.ActReadAny)).Get("/wallet/{username}", h.UserWallet)

	r.Get("/exchange/rates", h.ExchangeRates)
	r.With(h.requirePermission(authz.ObjExchange, authz.ActManage)).Put("/exchange/rates", h.SetExchangeRates)
	r.With(trade).Post("/exchange", h.Exchange)

	r.Route("/auctions", func(r chi.Router) {
		r.Get("/", h.ListAuctions)
		r.With(trade).Post("/", h.CreateAuction)
		r.Get("/{id}", h.GetAuction)
		r.With(trade).Post("/{id}/bids", h.Bid)
	})

	r.Route("/crypto/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.With(h.requirePermission(authz.ObjProducts, authz.ActManage)).Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.With(trade).Post("/{id}/purchase", h.Purchase)
	})

	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.ListStocks)
		r.With(h.requirePermission(authz.ObjStocks, authz.ActManage)).Post("/", h.CreateStock)
		r.Get("/user/self", h.SelfStocks)
	})
	r.With(trade).Post("/trade/stock/{id}", h.TradeStock)
}

func (h *Handler) communityRoutes(r chi.Router) {
	r.With(h.requirePermission(authz.ObjShortURLs, authz.ActCreate)).Post("/short-urls", h.CreateShortURL)
	r.With(h.requirePermission(authz.ObjRecruiters, authz.ActRead)).Get("/recruiters", h.ListRecruiters)

	r.Route("/challenges", func(r chi.Router) {
		r.Get("/", h.ListChallenges)
		r.With(h.requirePermission(authz.ObjChallenges, authz.ActManage)).Post("/", h.CreateChallenge)
		r.With(h.requirePermission(authz.ObjChallenges, authz.ActSubscribe)).Post("/subscribe", h.SubscribeChallenge)
	})
}
