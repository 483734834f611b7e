// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package supervisor runs the long-lived services of the API under a suture
// v4 supervisor tree.
//
//	squadapi
//	├── data-layer       scheduler (status expiry, auction settlement, store GC)
//	├── messaging-layer  event dispatcher (Discord notifications)
//	└── api-layer        HTTP server
//
// Each layer counts failures on its own, so a dispatcher crash loop does not
// take the HTTP server down. Supervisor events are logged through sutureslog
// into the zerolog-backed slog handler from internal/logging.
package supervisor
