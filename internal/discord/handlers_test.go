// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
)

type fakeNotifier struct {
	status   chan StatusNotice
	archived chan ArchiveNotice
	requests chan RequestNotice
}

func (f *fakeNotifier) NotifyStatus(_ context.Context, n StatusNotice) error {
	f.status <- n
	return nil
}

func (f *fakeNotifier) NotifyArchived(_ context.Context, n ArchiveNotice) error {
	f.archived <- n
	return nil
}

func (f *fakeNotifier) NotifyRequest(_ context.Context, n RequestNotice) error {
	f.requests <- n
	return nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func TestRegisterRoutesEvents(t *testing.T) {
	n := &fakeNotifier{
		status:   make(chan StatusNotice, 1),
		archived: make(chan ArchiveNotice, 1),
		requests: make(chan RequestNotice, 2),
	}
	users := fakeUsers{"u1": {ID: "u1", DiscordID: "d1"}}

	bus := events.NewBus(config.EventsConfig{BufferSize: 8, Topic: "discord.test"})
	d := events.NewDispatcher(bus, events.DispatcherConfig{MaxRetries: 0, InitialInterval: time.Millisecond, CloseTimeout: time.Second})
	Register(d, n, users)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Serve(ctx) }()
	<-d.Running()

	_ = bus.Publish(ctx, events.New(events.UserStatusChanged, "u1", "u1", map[string]interface{}{"state": "OOO", "until": 1700000000000}))
	_ = bus.Publish(ctx, events.New(events.UserArchived, "u1", "u1", map[string]interface{}{"reason": "left"}))
	_ = bus.Publish(ctx, events.New(events.RequestApproved, "u1", "r1", map[string]interface{}{"type": "OOO", "requested_by": "u1"}))

	timeout := time.After(5 * time.Second)
	select {
	case s := <-n.status:
		if s.DiscordID != "d1" || s.State != "OOO" || s.Until != 1700000000000 {
			t.Errorf("status notice = %+v", s)
		}
	case <-timeout:
		t.Fatal("no status notice")
	}
	select {
	case a := <-n.archived:
		if a.Reason != "left" {
			t.Errorf("archive notice = %+v", a)
		}
	case <-timeout:
		t.Fatal("no archive notice")
	}
	select {
	case r := <-n.requests:
		if r.RequestID != "r1" || r.State != "APPROVED" || r.Type != "OOO" {
			t.Errorf("request notice = %+v", r)
		}
	case <-timeout:
		t.Fatal("no request notice")
	}
}
