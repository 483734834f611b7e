// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package events carries domain events from the services to asynchronous
// consumers over an in-process Watermill GoChannel pub/sub.
//
// Services publish through the Publisher interface after their transaction
// commits. The Dispatcher runs as a supervised service and fans each event
// out to the handlers registered for its type.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	UserStatusChanged    Type = "user.status_changed"
	UserArchived         Type = "user.archived"
	UserRolesUpdated     Type = "user.roles_updated"
	RequestCreated       Type = "request.created"
	RequestApproved      Type = "request.approved"
	RequestRejected      Type = "request.rejected"
	ImpersonationStarted Type = "impersonation.started"
	ImpersonationStopped Type = "impersonation.stopped"
	AuctionSettled       Type = "auction.settled"
)

// Event is one domain occurrence. Subject is the ID of the affected document.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	UserID     string                 `json:"user_id,omitempty"`
	Subject    string                 `json:"subject,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// New builds an event with a fresh ID.
func New(t Type, userID, subject string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		Subject:    subject,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// String returns a data field as a string, or "".
func (e Event) String(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory. Tests use it to assert on
// emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the types of published events in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
