// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// RequestType selects which lifecycle rules a request follows.
type RequestType string

const (
	RequestOOO           RequestType = "OOO"
	RequestExtension     RequestType = "EXTENSION"
	RequestOnboarding    RequestType = "ONBOARDING"
	RequestImpersonation RequestType = "IMPERSONATION"
	RequestTask          RequestType = "TASK"
)

// RequestTypes lists every supported request type.
var RequestTypes = []RequestType{
	RequestOOO, RequestExtension, RequestOnboarding, RequestImpersonation, RequestTask,
}

// RequestState is the review state. PENDING is the only state that may be
// reviewed; APPROVED and REJECTED are final.
type RequestState string

const (
	RequestPending  RequestState = "PENDING"
	RequestApproved RequestState = "APPROVED"
	RequestRejected RequestState = "REJECTED"
)

// TaskRequestType distinguishes assigning an existing task from proposing a
// new one.
type TaskRequestType string

const (
	TaskRequestAssignment TaskRequestType = "ASSIGNMENT"
	TaskRequestCreation   TaskRequestType = "CREATION"
)

// TaskRequestUser is one applicant on a TASK request.
type TaskRequestUser struct {
	UserID            string       `json:"user_id"`
	Status            RequestState `json:"status"`
	ProposedStartDate int64        `json:"proposed_start_date"` // unix ms
	ProposedDeadline  int64        `json:"proposed_deadline"`   // unix ms
	Description       string       `json:"description,omitempty"`
	MarkdownEnabled   bool         `json:"markdown_enabled,omitempty"`
	RequestedAt       time.Time    `json:"requested_at"`
}

// Request is a reviewable ask. Type-specific fields are left empty for the
// types that do not use them.
type Request struct {
	ID             string       `json:"id"`
	Type           RequestType  `json:"type"`
	State          RequestState `json:"state"`
	RequestedBy    string       `json:"requested_by"`
	Reason         string       `json:"reason,omitempty"`
	Message        string       `json:"message,omitempty"`
	LastModifiedBy string       `json:"last_modified_by,omitempty"`
	ReviewComment  string       `json:"review_comment,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	// OOO, unix milliseconds
	From  int64 `json:"from,omitempty"`
	Until int64 `json:"until,omitempty"`

	// EXTENSION and ONBOARDING, unix seconds
	TaskID        string `json:"task_id,omitempty"`
	Title         string `json:"title,omitempty"`
	OldEndsOn     int64  `json:"old_ends_on,omitempty"`
	NewEndsOn     int64  `json:"new_ends_on,omitempty"`
	RequestNumber int    `json:"request_number,omitempty"`
	NumberOfDays  int    `json:"number_of_days,omitempty"`

	// IMPERSONATION
	ImpersonatedUserID      string     `json:"impersonated_user_id,omitempty"`
	IsImpersonationFinished bool       `json:"is_impersonation_finished,omitempty"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	EndedAt                 *time.Time `json:"ended_at,omitempty"`

	// TASK
	TaskRequestType  TaskRequestType   `json:"request_type,omitempty"`
	ExternalIssueURL string            `json:"external_issue_url,omitempty"`
	Users            []TaskRequestUser `json:"users,omitempty"`
	UsersCount       int               `json:"users_count,omitempty"`
}

// IsPending reports whether r can still be reviewed.
func (r *Request) IsPending() bool {
	return r.State == RequestPending
}
