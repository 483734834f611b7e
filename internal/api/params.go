// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Pagination is the resolved limit/offset of a list request.
type Pagination struct {
	Limit  int
	Offset int
}

// pagination reads limit and offset, clamping limit to the configured
// maximum. Malformed values are a 400.
func pagination(r *http.Request, cfg config.APIConfig) (Pagination, error) {
	p := Pagination{Limit: cfg.DefaultPageSize}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, errBadQuery("limit must be a positive integer")
		}
		p.Limit = min(n, cfg.MaxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errBadQuery("offset must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}

// boolQuery reads an optional boolean query parameter.
func boolQuery(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errBadQuery(key + " must be true or false")
	}
	return b, nil
}

// decodeAndValidate reads a JSON body into dst and validates its tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadBody("request body is required")
		}
		return errBadBody(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// requestError is a client error raised while parsing the request itself.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func errBadQuery(msg string) error { return &requestError{message: msg} }
func errBadBody(msg string) error  { return &requestError{message: msg} }

// writeError extends writeServiceError with request parsing failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rerr *requestError
	if errors.As(err, &rerr) {
		NewResponseWriter(w, r).BadRequest(rerr.message)
		return
	}
	writeServiceError(w, r, err)
}
