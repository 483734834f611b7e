// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package audit appends and queries the platform audit log. Entries are
// written inside the caller's transaction so a change and its log entry
// commit together.
package audit

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/lithammer/shortuuid/v3"

	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

// Meta keys shared by all log entries.
const (
	MetaUserID    = "user_id"  // the user the entry is about
	MetaActorID   = "actor_id" // the user who caused it
	MetaRequestID = "request_id"
	MetaTaskID    = "task_id"
	MetaAuctionID = "auction_id"
)

// Entry describes a log entry to append.
type Entry struct {
	Type models.LogType
	Meta map[string]string
	Body map[string]interface{}
}

// Record appends e to the log at now.
func Record(tx *database.Tx, now time.Time, e Entry) error {
	// Zero padded nanoseconds keep key order chronological.
	id := fmt.Sprintf("%020d-%s", now.UnixNano(), shortuuid.New())
	entry := models.Log{
		ID:        id,
		Type:      e.Type,
		Meta:      e.Meta,
		Body:      e.Body,
		CreatedAt: now.UTC(),
	}
	if entry.Meta == nil {
		entry.Meta = map[string]string{}
	}
	return tx.Put(database.Logs, id, &entry)
}

// Filter narrows a log query. UserID matches either the subject or the actor.
type Filter struct {
	Type   models.LogType
	UserID string
	Limit  int
	Offset int
}

// Service reads the audit log.
type Service struct {
	store *database.Store
}

// NewService creates a log reader.
func NewService(store *database.Store) *Service {
	return &Service{store: store}
}

// List returns matching entries, newest first, and the total match count.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Log, int, error) {
	var logs []models.Log
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		logs, err = database.List(tx, database.Logs, func(l *models.Log) bool {
			if f.Type != "" && l.Type != f.Type {
				return false
			}
			if f.UserID != "" && l.Meta[MetaUserID] != f.UserID && l.Meta[MetaActorID] != f.UserID {
				return false
			}
			return true
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	slices.Reverse(logs)
	return database.Page(logs, f.Limit, f.Offset), len(logs), nil
}
