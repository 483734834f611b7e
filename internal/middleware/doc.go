// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package middleware holds the net/http middleware shared by every route:
// request IDs, Prometheus instrumentation and access logging.
package middleware
