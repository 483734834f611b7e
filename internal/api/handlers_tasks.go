// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/tasks"
)

// ListTasks handles GET /tasks?status=&assignee=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	list, total, err := h.tasks.List(r.Context(), tasks.Filter{
		Status:   models.TaskStatus(q.Get("status")),
		Assignee: q.Get("assignee"),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Tasks returned successfully", list, p, len(list), total)
}

// GetTask handles GET /tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Task returned successfully", task)
}

// CreateTask handles POST /tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in tasks.Input
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Create(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Task created successfully", task)
}

// UpdateTask handles PATCH /tasks/{id}. Field restrictions for assignees are
// enforced by the service.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var in tasks.Update
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Task updated successfully", task)
}
