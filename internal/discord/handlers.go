// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/models"
)

// UserLookup resolves users for their Discord IDs.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Register subscribes n to the events it mirrors into Discord.
func Register(d *events.Dispatcher, n Notifier, users UserLookup) {
	d.On(events.UserStatusChanged, func(ctx context.Context, e events.Event) error {
		discordID, err := discordIDFor(ctx, users, e.UserID)
		if err != nil || discordID == "" {
			return err
		}
		until, _ := e.Data["until"].(float64)
		return n.NotifyStatus(ctx, StatusNotice{
			UserID:    e.UserID,
			DiscordID: discordID,
			State:     e.String("state"),
			Message:   e.String("message"),
			Until:     int64(until),
		})
	})

	d.On(events.UserArchived, func(ctx context.Context, e events.Event) error {
		discordID, err := discordIDFor(ctx, users, e.UserID)
		if err != nil || discordID == "" {
			return err
		}
		return n.NotifyArchived(ctx, ArchiveNotice{UserID: e.UserID, DiscordID: discordID, Reason: e.String("reason")})
	})

	notifyRequest := func(ctx context.Context, e events.Event) error {
		state := strings.ToUpper(strings.TrimPrefix(string(e.Type), "request."))
		if state == "CREATED" {
			state = string(models.RequestPending)
		}
		return n.NotifyRequest(ctx, RequestNotice{
			RequestID:   e.Subject,
			Type:        e.String("type"),
			State:       state,
			RequestedBy: e.String("requested_by"),
			ReviewedBy:  e.String("reviewed_by"),
		})
	}
	d.On(events.RequestCreated, notifyRequest)
	d.On(events.RequestApproved, notifyRequest)
	d.On(events.RequestRejected, notifyRequest)
}

func discordIDFor(ctx context.Context, users UserLookup, userID string) (string, error) {
	u, err := users.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	if u.DiscordID == "" {
		logging.Ctx(ctx).Debug().Str("user_id", userID).Msg("User has no Discord account, skipping notification")
	}
	return u.DiscordID, nil
}
