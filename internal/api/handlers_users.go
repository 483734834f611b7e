// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/users"
)

// ListUsers handles GET /users?search=&role=&limit=&offset=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, total, err := h.users.List(r.Context(), users.ListFilter{
		Search: q.Get("search"),
		Role:   q.Get("role"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Users returned successfully", publicUsers(list), p, len(list), total)
}

// Self returns the full profile of the caller.
func (h *Handler) Self(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success("User returned successfully", currentUser(r))
}

// UpdateSelf handles PATCH /users/self.
func (h *Handler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	var in users.ProfileUpdate
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Profile updated successfully", user)
}

// UserByID handles GET /users/{id}.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("User returned successfully", user.Public())
}

// UserByUsername handles GET /users/username/{username}.
func (h *Handler) UserByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("User returned successfully", user.Public())
}

// UsernameAvailable handles GET /users/username/{username}/available.
func (h *Handler) UsernameAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := h.users.UsernameAvailable(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Username availability checked", map[string]bool{"is_username_available": available})
}

// UpdateRoles handles PATCH /users/{id}/roles.
func (h *Handler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	var in users.RolesUpdate
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.UpdateRoles(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Roles updated successfully", user)
}

// SelfStatus handles GET /users/status/self.
func (h *Handler) SelfStatus(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, currentUser(r).ID)
}

// UserStatus handles GET /users/{id}/status.
func (h *Handler) UserStatus(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request, userID string) {
	st, err := h.users.Status(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Status returned successfully", st)
}

// UpdateSelfStatus handles PATCH /users/status/self.
func (h *Handler) UpdateSelfStatus(w http.ResponseWriter, r *http.Request) {
	var in users.StatusUpdate
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.users.UpdateSelfStatus(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Status updated successfully", st)
}

// ListMembers handles GET /members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := h.users.Members(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Members returned successfully", publicUsers(list), p, len(list), total)
}

// MoveToMember handles PATCH /members/{username}/move.
func (h *Handler) MoveToMember(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.MoveToMember(r.Context(), currentUser(r).ID, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("User moved to member", user)
}

type archiveInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ArchiveMember handles PATCH /members/{username}/archive.
func (h *Handler) ArchiveMember(w http.ResponseWriter, r *http.Request) {
	var in archiveInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.Archive(r.Context(), currentUser(r).ID, chi.URLParam(r, "username"), in.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Member archived", user)
}

func publicUsers(list []models.User) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out
}
