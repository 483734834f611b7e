// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
)

const metadataType = "event_type"

// Bus is the in-process pub/sub shared by publishers and the Dispatcher.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a GoChannel pub/sub. Events published while no dispatcher
// is subscribed are dropped.
func NewBus(cfg config.EventsConfig) *Bus {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger().With("component", "events"))
	topic := cfg.Topic
	if topic == "" {
		topic = "squad.events"
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, logger),
		topic:  topic,
		logger: logger,
	}
}

// Topic returns the topic events are published on.
func (b *Bus) Topic() string {
	return b.topic
}

// Publish serializes e and hands it to the pub/sub.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(e.ID, data)
	msg.Metadata.Set(metadataType, string(e.Type))
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}

	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
	return nil
}

// subscriber returns a view of the pub/sub whose Close is a no-op, so a
// stopping router does not tear down the shared bus.
func (b *Bus) subscriber() message.Subscriber {
	return keepOpenSubscriber{b.pubsub}
}

// Close shuts the pub/sub down. Later publishes fail.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

type keepOpenSubscriber struct {
	message.Subscriber
}

func (keepOpenSubscriber) Close() error { return nil }
