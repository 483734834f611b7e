// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/requests"
)

// defaultImpersonationTTL matches the token lifetime used when none is set.
const defaultImpersonationTTL = 15 * time.Minute

// CreateRequest handles POST /requests. The body's type selects the
// lifecycle.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var in requests.CreateInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.requests.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Request created successfully", req)
}

// ListRequests handles GET /requests?type=&state=&requested_by=.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, total, err := h.requests.List(r.Context(), currentUser(r), requests.Filter{
		Type:        models.RequestType(q.Get("type")),
		State:       models.RequestState(q.Get("state")),
		RequestedBy: q.Get("requested_by"),
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Requests returned successfully", list, p, len(list), total)
}

// GetRequest handles GET /requests/{id}.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.requests.Get(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Request returned successfully", req)
}

// ReviewRequest handles PUT /requests/{id}.
func (h *Handler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	var in requests.ReviewInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.requests.Review(r.Context(), currentUser(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Request "+string(req.State)+" successfully", req)
}

// Impersonate handles PATCH /requests/{id}/impersonation?action=START|STOP.
// The returned token also replaces the session cookie.
func (h *Handler) Impersonate(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	session, err := h.requests.Impersonate(r.Context(), realUserID(r), chi.URLParam(r, "id"), action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ttl := h.tokens.SessionTimeout()
	message := "Impersonation stopped"
	if !session.Request.IsImpersonationFinished {
		ttl = h.cfg.Security.ImpersonationTimeout
		if ttl <= 0 {
			ttl = defaultImpersonationTTL
		}
		message = "Impersonation started"
	}
	h.cookies.SetSession(w, session.Token, ttl)
	NewResponseWriter(w, r).Success(message, session)
}

// ListLogs handles GET /logs?type=&user_id=.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, total, err := h.logs.List(r.Context(), audit.Filter{
		Type:   models.LogType(q.Get("type")),
		UserID: q.Get("user_id"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Logs returned successfully", list, p, len(list), total)
}
