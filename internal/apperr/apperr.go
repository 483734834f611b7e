// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package apperr classifies service errors so the API layer can map them to
// HTTP statuses without knowing every sentinel.
//
//	var ErrPendingExists = apperr.Conflict("a pending request already exists")
//
//	errors.Is(err, apperr.ErrConflict) // true for ErrPendingExists and wraps of it
package apperr

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrInvalid   = errors.New("invalid input")
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
)

// Error is a message tagged with a kind.
type Error struct {
	kind    error
	message string
}

// Error returns the message.
func (e *Error) Error() string { return e.message }

// Is matches the kind as well as the exact error.
func (e *Error) Is(target error) bool { return target == e.kind }

// Kind returns the classification.
func (e *Error) Kind() error { return e.kind }

// Invalid creates a 400-class error.
func Invalid(format string, args ...interface{}) error {
	return &Error{kind: ErrInvalid, message: fmt.Sprintf(format, args...)}
}

// Forbidden creates a 403-class error.
func Forbidden(format string, args ...interface{}) error {
	return &Error{kind: ErrForbidden, message: fmt.Sprintf(format, args...)}
}

// NotFound creates a 404-class error.
func NotFound(format string, args ...interface{}) error {
	return &Error{kind: ErrNotFound, message: fmt.Sprintf(format, args...)}
}

// Conflict creates a 409-class error.
func Conflict(format string, args ...interface{}) error {
	return &Error{kind: ErrConflict, message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or nil when it is unclassified.
func KindOf(err error) error {
	for _, k := range []error{ErrInvalid, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
