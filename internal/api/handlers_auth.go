// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/logging"
)

// GitHubLogin starts the OAuth flow. The state is kept in a short-lived
// cookie and compared on callback.
func (h *Handler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		NewResponseWriter(w, r).ServiceUnavailable("GitHub sign-in is not configured")
		return
	}
	state := uuid.NewString()
	h.cookies.SetState(w, state)
	http.Redirect(w, r, h.github.AuthCodeURL(state), http.StatusFound)
}

// GitHubCallback completes the OAuth flow, signs the user in and redirects
// to the configured landing page.
func (h *Handler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.github == nil {
		rw.ServiceUnavailable("GitHub sign-in is not configured")
		return
	}
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		rw.BadRequest("invalid OAuth state")
		return
	}
	h.cookies.ClearState(w)

	code := r.URL.Query().Get("code")
	if code == "" {
		rw.BadRequest("missing authorization code")
		return
	}
	profile, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("GitHub code exchange failed")
		rw.Unauthorized("GitHub authentication failed")
		return
	}

	user, created, err := h.users.LoginWithGitHub(r.Context(), profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		rw.InternalError(err)
		return
	}
	h.cookies.SetSession(w, token, h.tokens.SessionTimeout())
	logging.Ctx(r.Context()).Info().
		Str("user_id", user.ID).
		Bool("new_user", created).
		Msg("User signed in with GitHub")

	if target := h.cfg.GitHub.RedirectAfterLogin; target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	rw.Success("Signed in", map[string]interface{}{
		"user":                    user,
		"incomplete_user_details": user.IncompleteUserDetails,
	})
}

// SignOut clears the session cookie.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)
	NewResponseWriter(w, r).Success("Signed out", nil)
}
