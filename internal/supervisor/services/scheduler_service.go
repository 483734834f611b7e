// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package services

import (
	"context"
	"fmt"
)

// Lifecycle is a component with explicit Start and Stop, such as
// *scheduler.Scheduler.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// LifecycleService supervises a Lifecycle: Start on entry, Stop once the
// context is canceled.
type LifecycleService struct {
	component Lifecycle
	name      string
}

// NewLifecycleService wraps component under name.
func NewLifecycleService(name string, component Lifecycle) *LifecycleService {
	return &LifecycleService{component: component, name: name}
}

// Serve implements suture.Service. A Start failure is returned so suture
// restarts the service with backoff.
func (s *LifecycleService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}
	<-ctx.Done()
	if err := s.component.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

func (s *LifecycleService) String() string { return s.name }
