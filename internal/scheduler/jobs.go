// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package scheduler

import (
	"context"

	"github.com/tomtom215/squadapi/internal/config"
)

// Job names.
const (
	JobApplyStatuses  = "apply-statuses"
	JobSettleAuctions = "settle-auctions"
	JobStoreGC        = "store-gc"
)

// gcDiscardRatio is the value log discard ratio for one GC pass.
const gcDiscardRatio = 0.5

// StatusApplier promotes and expires scheduled user statuses.
type StatusApplier interface {
	ApplyDueStatuses(ctx context.Context) (int, error)
}

// AuctionSettler settles auctions past their end time.
type AuctionSettler interface {
	SettleDue(ctx context.Context) (int, error)
}

// GarbageCollector reclaims store space.
type GarbageCollector interface {
	CollectGarbage(discardRatio float64) error
}

// Jobs builds the standard job set from cfg.
func Jobs(cfg config.SchedulerConfig, statuses StatusApplier, auctions AuctionSettler, gc GarbageCollector) []Job {
	return []Job{
		{Name: JobApplyStatuses, Spec: cfg.StatusSpec, Run: statuses.ApplyDueStatuses},
		{Name: JobSettleAuctions, Spec: cfg.AuctionSpec, Run: auctions.SettleDue},
		{
			Name: JobStoreGC,
			Spec: cfg.GCSpec,
			Run: func(context.Context) (int, error) {
				return 0, gc.CollectGarbage(gcDiscardRatio)
			},
		},
	}
}
