// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
)

// Handler reacts to one event. Returned errors are retried.
type Handler func(ctx context.Context, e Event) error

// DispatcherConfig tunes handler retries.
type DispatcherConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	CloseTimeout    time.Duration
}

// DefaultDispatcherConfig returns three retries starting at 100ms.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		CloseTimeout:    10 * time.Second,
	}
}

// Dispatcher consumes the bus and calls the handlers registered per type.
// It implements suture.Service; each Serve call builds a fresh router.
type Dispatcher struct {
	bus *Bus
	cfg DispatcherConfig

	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler
	running  chan struct{}
}

// NewDispatcher creates a dispatcher reading from bus.
func NewDispatcher(bus *Bus, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		bus:      bus,
		cfg:      cfg,
		handlers: make(map[Type][]Handler),
		running:  make(chan struct{}),
	}
}

// On registers h for events of type t.
func (d *Dispatcher) On(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], h)
}

// OnAll registers h for every event.
func (d *Dispatcher) OnAll(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, h)
}

// Running is closed once the first router has subscribed.
func (d *Dispatcher) Running() <-chan struct{} {
	return d.running
}

// Serve runs the router until ctx is canceled.
func (d *Dispatcher) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: d.cfg.CloseTimeout}, d.bus.logger)
	if err != nil {
		return fmt.Errorf("create event router: %w", err)
	}

	retry := middleware.Retry{
		MaxRetries:      d.cfg.MaxRetries,
		InitialInterval: d.cfg.InitialInterval,
		Multiplier:      2,
		Logger:          d.bus.logger,
	}
	// Outermost first: drop after retries so GoChannel does not redeliver forever.
	router.AddMiddleware(dropFailed, retry.Middleware, middleware.Recoverer)
	router.AddConsumerHandler("dispatcher", d.bus.Topic(), d.bus.subscriber(), d.handle)

	go func() {
		select {
		case <-router.Running():
			d.mu.Lock()
			select {
			case <-d.running:
			default:
				close(d.running)
			}
			d.mu.Unlock()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("topic", d.bus.Topic()).Msg("Event dispatcher started")
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (d *Dispatcher) String() string {
	return "event-dispatcher"
}

func (d *Dispatcher) handle(msg *message.Message) error {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		// Not retryable.
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
		return nil
	}

	d.mu.RLock()
	handlers := append(append([]Handler(nil), d.handlers[e.Type]...), d.all...)
	d.mu.RUnlock()

	ctx := msg.Context()
	if id := msg.Metadata.Get("request_id"); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	metrics.RecordEventHandled(string(e.Type), err)
	return err
}

func dropFailed(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			logging.Warn().Err(err).
				Str("message_id", msg.UUID).
				Str("event_type", msg.Metadata.Get(metadataType)).
				Msg("Event handler failed after retries, dropping")
			return nil, nil
		}
		return out, nil
	}
}
