// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	TaskAvailable   TaskStatus = "AVAILABLE"
	TaskAssigned    TaskStatus = "ASSIGNED"
	TaskInProgress  TaskStatus = "IN_PROGRESS"
	TaskBlocked     TaskStatus = "BLOCKED"
	TaskNeedsReview TaskStatus = "NEEDS_REVIEW"
	TaskCompleted   TaskStatus = "COMPLETED"
	TaskVerified    TaskStatus = "VERIFIED"
)

// TaskStatuses lists every valid status, in workflow order.
var TaskStatuses = []TaskStatus{
	TaskAvailable, TaskAssigned, TaskInProgress, TaskBlocked,
	TaskNeedsReview, TaskCompleted, TaskVerified,
}

// Task is a unit of community work. Assignee holds a user ID.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type"`
	Purpose          string     `json:"purpose,omitempty"`
	Priority         string     `json:"priority,omitempty"`
	Status           TaskStatus `json:"status"`
	Assignee         string     `json:"assignee,omitempty"`
	PercentCompleted int        `json:"percent_completed"`
	StartedOn        int64      `json:"started_on,omitempty"` // unix seconds
	EndsOn           int64      `json:"ends_on,omitempty"`    // unix seconds
	IsNoteworthy     bool       `json:"is_noteworthy"`
	GithubIssueURL   string     `json:"github_issue_url,omitempty"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
