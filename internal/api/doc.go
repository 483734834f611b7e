// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

/*
Package api is the HTTP surface of the Squad API.

Routing uses chi v5 with go-chi/cors and go-chi/httprate. Every response uses
one envelope:

	{"success": true, "message": "...", "data": {...}, "meta": {...}}
	{"success": false, "error": {"code": "CONFLICT", "message": "...", "request_id": "..."}, "meta": {...}}

Handlers decode JSON with goccy/go-json, validate with go-playground/validator
through internal/validation, and translate service errors with writeServiceError:
apperr kinds map to 400/403/404/409, authentication failures to 401 and
anything else to 500.

Authentication reads the session JWT from the cookie or a Bearer header.
Authorization is role based through internal/authz; requirePermission guards
admin routes and the services enforce ownership rules themselves.
*/
package api
