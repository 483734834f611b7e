// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/squadapi/internal/config"
)

func startDispatcher(t *testing.T, setup func(d *Dispatcher)) *Bus {
	t.Helper()
	bus := NewBus(config.EventsConfig{BufferSize: 16, Topic: "test.events"})
	d := NewDispatcher(bus, DispatcherConfig{MaxRetries: 2, InitialInterval: time.Millisecond, CloseTimeout: time.Second})
	setup(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	select {
	case <-d.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not start")
	}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not stop")
		}
		_ = bus.Close()
	})
	return bus
}

func TestDispatchByType(t *testing.T) {
	archived := make(chan Event, 1)
	var seen atomic.Int32

	bus := startDispatcher(t, func(d *Dispatcher) {
		d.On(UserArchived, func(_ context.Context, e Event) error {
			archived <- e
			return nil
		})
		d.OnAll(func(context.Context, Event) error {
			seen.Add(1)
			return nil
		})
	})

	ctx := context.Background()
	if err := bus.Publish(ctx, New(RequestCreated, "u1", "r1", nil)); err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(ctx, New(UserArchived, "u2", "u2", map[string]interface{}{"reason": "left"})); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-archived:
		if e.UserID != "u2" || e.String("reason") != "left" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("archived event not delivered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for seen.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if seen.Load() != 2 {
		t.Errorf("catch-all handler saw %d events, want 2", seen.Load())
	}
}

func TestFailingHandlerIsRetriedThenDropped(t *testing.T) {
	var attempts atomic.Int32
	next := make(chan struct{}, 1)

	bus := startDispatcher(t, func(d *Dispatcher) {
		d.On(RequestApproved, func(context.Context, Event) error {
			attempts.Add(1)
			return errors.New("discord down")
		})
		d.On(RequestRejected, func(context.Context, Event) error {
			next <- struct{}{}
			return nil
		})
	})

	ctx := context.Background()
	_ = bus.Publish(ctx, New(RequestApproved, "u1", "r1", nil))
	_ = bus.Publish(ctx, New(RequestRejected, "u1", "r2", nil))

	select {
	case <-next:
	case <-time.After(5 * time.Second):
		t.Fatal("event after a failing one was not delivered")
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus(config.EventsConfig{})
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(context.Background(), New(UserArchived, "u", "u", nil)); err == nil {
		t.Error("Publish after Close should fail")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Publish(context.Background(), New(RequestCreated, "u", "r", nil))
	_ = r.Publish(context.Background(), New(RequestApproved, "u", "r", nil))
	types := r.Types()
	if len(types) != 2 || types[1] != RequestApproved {
		t.Errorf("Types() = %v", types)
	}
}
