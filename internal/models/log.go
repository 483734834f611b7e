// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// LogType classifies an audit log entry.
type LogType string

const (
	LogRequestCreated       LogType = "REQUEST_CREATED"
	LogRequestApproved      LogType = "REQUEST_APPROVED"
	LogRequestRejected      LogType = "REQUEST_REJECTED"
	LogUserRoleUpdated      LogType = "USER_ROLE_UPDATED"
	LogMemberArchived       LogType = "MEMBER_ARCHIVED"
	LogMemberMoved          LogType = "MEMBER_MOVED"
	LogStatusUpdated        LogType = "USER_STATUS_UPDATED"
	LogTaskUpdated          LogType = "TASK_UPDATED"
	LogImpersonationStarted LogType = "IMPERSONATION_STARTED"
	LogImpersonationStopped LogType = "IMPERSONATION_STOPPED"
	LogAuctionSettled       LogType = "AUCTION_SETTLED"
)

// Log is an append-only audit entry. Meta carries identifiers that can be
// filtered on; Body carries the change itself.
type Log struct {
	ID        string                 `json:"id"`
	Type      LogType                `json:"type"`
	Meta      map[string]string      `json:"meta"`
	Body      map[string]interface{} `json:"body,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
