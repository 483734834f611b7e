// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/squadapi/internal/metrics"
)

// readyTimeout bounds the store ping of the readiness probe.
const readyTimeout = 2 * time.Second

// Health reports liveness and uptime. It never touches the store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime).Seconds()
	metrics.AppUptime.Set(uptime)
	NewResponseWriter(w, r).Success("Server is healthy", map[string]interface{}{
		"status": "healthy",
		"uptime": uptime,
	})
}

// HealthReady answers 503 until the document store responds.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		rw.ServiceUnavailable("store is not ready")
		return
	}
	rw.Success("Server is ready", map[string]interface{}{"ready": true, "database": "ok"})
}
