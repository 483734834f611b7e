// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/auth"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/validation"
)

// writeServiceError maps an error returned by a service onto the envelope.
// Unclassified errors are logged and reported as 500 without their message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		writeValidationError(rw, verr)
		return
	}

	switch apperr.KindOf(err) {
	case apperr.ErrInvalid:
		rw.BadRequest(err.Error())
		return
	case apperr.ErrForbidden:
		rw.Forbidden(err.Error())
		return
	case apperr.ErrNotFound:
		rw.NotFound(err.Error())
		return
	case apperr.ErrConflict:
		rw.Conflict(err.Error())
		return
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("resource not found")
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnknownUser):
		rw.Unauthorized("authentication required")
	case errors.Is(err, database.ErrClosed):
		rw.ServiceUnavailable("store is unavailable")
	default:
		rw.InternalError(err)
	}
}

func writeValidationError(rw *ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	rw.ValidationError(apiErr.Message, apiErr.Details)
}
