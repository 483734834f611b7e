// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/squadapi/internal/challenges"
	"github.com/tomtom215/squadapi/internal/recruiters"
	"github.com/tomtom215/squadapi/internal/shorturl"
)

// CreateShortURL handles POST /short-urls. An existing code for the same
// URL and owner is returned with 200 instead of 201.
func (h *Handler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	var in shorturl.Input
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	short, created, err := h.shortURLs.Create(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data := map[string]interface{}{
		"short_url": short,
		"link":      h.cfg.Server.PublicURL + "/s/" + short.Code,
	}
	rw := NewResponseWriter(w, r)
	if !created {
		rw.Success("Short URL already exists", data)
		return
	}
	rw.Created("Short URL created successfully", data)
}

// GetShortURL handles GET /short-urls/{code}.
func (h *Handler) GetShortURL(w http.ResponseWriter, r *http.Request) {
	short, err := h.shortURLs.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Short URL returned successfully", short)
}

// RedirectShortURL handles GET /s/{code} with a 302 and counts the hit.
func (h *Handler) RedirectShortURL(w http.ResponseWriter, r *http.Request) {
	short, err := h.shortURLs.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, short.OriginalURL, http.StatusFound)
}

// AddRecruiterIntro handles POST /members/{username}/intro. It is public.
func (h *Handler) AddRecruiterIntro(w http.ResponseWriter, r *http.Request) {
	var in recruiters.Input
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.recruiters.AddIntro(r.Context(), chi.URLParam(r, "username"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Request submitted successfully", rec)
}

// ListRecruiters handles GET /recruiters.
func (h *Handler) ListRecruiters(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := h.recruiters.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Recruiters returned successfully", list, p, len(list), total)
}

// ListChallenges handles GET /challenges.
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	list, err := h.challenges.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Challenges returned successfully", list)
}

// CreateChallenge handles POST /challenges.
func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var in challenges.Input
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.challenges.Create(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Challenge added successfully", ch)
}

// SubscribeChallenge handles POST /challenges/subscribe.
func (h *Handler) SubscribeChallenge(w http.ResponseWriter, r *http.Request) {
	var in challenges.SubscribeInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.challenges.Subscribe(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("User subscribed successfully", ch)
}
