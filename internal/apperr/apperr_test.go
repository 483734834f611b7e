// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	pending := Conflict("a pending request already exists")
	wrapped := fmt.Errorf("create: %w", pending)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid", Invalid("bad %s", "x"), ErrInvalid},
		{"forbidden", Forbidden("no"), ErrForbidden},
		{"not found", NotFound("gone"), ErrNotFound},
		{"wrapped conflict", wrapped, ErrConflict},
		{"plain error", errors.New("boom"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}

	if !errors.Is(wrapped, pending) {
		t.Error("wrapped error should still match its sentinel")
	}
	if wrapped.Error() != "create: a pending request already exists" {
		t.Errorf("message = %q", wrapped.Error())
	}
}
