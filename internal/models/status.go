// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// UserState is the availability state shown to the community.
type UserState string

const (
	StateActive     UserState = "ACTIVE"
	StateIdle       UserState = "IDLE"
	StateOOO        UserState = "OOO"
	StateOnboarding UserState = "ONBOARDING"
)

// Status is one availability window. From and Until are unix milliseconds,
// zero when open-ended.
type Status struct {
	State     UserState `json:"state"`
	Message   string    `json:"message,omitempty"`
	From      int64     `json:"from,omitempty"`
	Until     int64     `json:"until,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserStatus is keyed by user ID. Future holds an approved OOO window that has
// not started yet; the scheduler promotes it to Current once From passes.
type UserStatus struct {
	UserID    string    `json:"user_id"`
	Current   Status    `json:"current"`
	Future    *Status   `json:"future,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
