// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package tasks stores community tasks and their progress.
package tasks

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/users"
)

var (
	ErrTaskNotFound     = apperr.NotFound("task not found")
	ErrNotAssignee      = apperr.Forbidden("only the assignee or a super user can update this task")
	ErrFieldRestricted  = apperr.Forbidden("assignees may only update percent_completed and status")
	ErrUnknownStatus    = apperr.Invalid("unknown task status")
	ErrInvalidDeadline  = apperr.Invalid("ends_on must be after started_on")
	ErrAssigneeNotFound = apperr.Invalid("assignee does not exist")
)

// Service implements task operations.
type Service struct {
	store *database.Store
	authz authz.Authorizer
	now   func() time.Time
}

// NewService creates the task service. A nil now uses time.Now.
func NewService(store *database.Store, az authz.Authorizer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, authz: az, now: now}
}

// Load reads a task inside tx.
func Load(tx *database.Tx, id string) (*models.Task, error) {
	t, err := database.Get[models.Task](tx, database.Tasks, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

// Save writes t inside tx.
func Save(tx *database.Tx, t *models.Task) error {
	return tx.Put(database.Tasks, t.ID, t)
}

// Input is the body of a task creation.
type Input struct {
	Title          string            `json:"title" validate:"required,max=200"`
	Type           string            `json:"type" validate:"required,oneof=feature bug chore"`
	Purpose        string            `json:"purpose" validate:"max=1000"`
	Priority       string            `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status         models.TaskStatus `json:"status"`
	Assignee       string            `json:"assignee"`
	StartedOn      int64             `json:"started_on" validate:"gte=0"`
	EndsOn         int64             `json:"ends_on" validate:"gte=0"`
	IsNoteworthy   bool              `json:"is_noteworthy"`
	GithubIssueURL string            `json:"github_issue_url" validate:"omitempty,http_url"`
}

// Create stores a new task created by actorID.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (*models.Task, error) {
	if in.Status == "" {
		in.Status = models.TaskAvailable
		if in.Assignee != "" {
			in.Status = models.TaskAssigned
		}
	}
	if !slices.Contains(models.TaskStatuses, in.Status) {
		return nil, ErrUnknownStatus
	}
	if in.StartedOn != 0 && in.EndsOn != 0 && in.EndsOn <= in.StartedOn {
		return nil, ErrInvalidDeadline
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:             database.NewID(),
		Title:          in.Title,
		Type:           in.Type,
		Purpose:        in.Purpose,
		Priority:       in.Priority,
		Status:         in.Status,
		Assignee:       in.Assignee,
		StartedOn:      in.StartedOn,
		EndsOn:         in.EndsOn,
		IsNoteworthy:   in.IsNoteworthy,
		GithubIssueURL: in.GithubIssueURL,
		CreatedBy:      actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		if task.Assignee != "" {
			if err := checkAssignee(tx, task.Assignee); err != nil {
				return err
			}
		}
		return Save(tx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func checkAssignee(tx *database.Tx, userID string) error {
	if _, err := users.Load(tx, userID); errors.Is(err, users.ErrUserNotFound) {
		return ErrAssigneeNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// Get loads a task.
func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	var t *models.Task
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		t, err = Load(tx, id)
		return err
	})
	return t, err
}

// Filter narrows List.
type Filter struct {
	Status   models.TaskStatus
	Assignee string
	Limit    int
	Offset   int
}

// List returns tasks newest first and the total match count.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Task, int, error) {
	if f.Status != "" && !slices.Contains(models.TaskStatuses, f.Status) {
		return nil, 0, ErrUnknownStatus
	}
	var found []models.Task
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		found, err = database.List(tx, database.Tasks, func(t *models.Task) bool {
			return (f.Status == "" || t.Status == f.Status) && (f.Assignee == "" || t.Assignee == f.Assignee)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(found, func(a, b models.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return database.Page(found, f.Limit, f.Offset), len(found), nil
}

// Update is a partial task change. Nil fields are left alone.
type Update struct {
	Title            *string            `json:"title" validate:"omitempty,max=200"`
	Purpose          *string            `json:"purpose" validate:"omitempty,max=1000"`
	Priority         *string            `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status           *models.TaskStatus `json:"status"`
	Assignee         *string            `json:"assignee"`
	PercentCompleted *int               `json:"percent_completed" validate:"omitempty,gte=0,lte=100"`
	StartedOn        *int64             `json:"started_on" validate:"omitempty,gte=0"`
	EndsOn           *int64             `json:"ends_on" validate:"omitempty,gte=0"`
	IsNoteworthy     *bool              `json:"is_noteworthy"`
	GithubIssueURL   *string            `json:"github_issue_url" validate:"omitempty,http_url"`
}

func (u *Update) progressOnly() bool {
	return u.Title == nil && u.Purpose == nil && u.Priority == nil && u.Assignee == nil &&
		u.StartedOn == nil && u.EndsOn == nil && u.IsNoteworthy == nil && u.GithubIssueURL == nil
}

// Update applies u on behalf of actor. Super users may change any field; the
// assignee may change progress and status.
func (s *Service) Update(ctx context.Context, actor *models.User, id string, u Update) (*models.Task, error) {
	manage := s.authz.Allowed(actor.RoleNames(), authz.ObjTasks, authz.ActManage)
	if u.Status != nil && !slices.Contains(models.TaskStatuses, *u.Status) {
		return nil, ErrUnknownStatus
	}

	now := s.now().UTC()
	var task *models.Task
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		t, err := Load(tx, id)
		if err != nil {
			return err
		}
		if !manage {
			if t.Assignee != actor.ID || actor.Roles.Archived {
				return ErrNotAssignee
			}
			if !u.progressOnly() {
				return ErrFieldRestricted
			}
		}
		before := *t

		if u.Assignee != nil && *u.Assignee != t.Assignee {
			if *u.Assignee != "" {
				if err := checkAssignee(tx, *u.Assignee); err != nil {
					return err
				}
			}
			t.Assignee = *u.Assignee
			if t.Assignee == "" {
				t.Status = models.TaskAvailable
			} else if t.Status == models.TaskAvailable {
				t.Status = models.TaskAssigned
			}
		}
		if u.Title != nil {
			t.Title = *u.Title
		}
		if u.Purpose != nil {
			t.Purpose = *u.Purpose
		}
		if u.Priority != nil {
			t.Priority = *u.Priority
		}
		if u.Status != nil {
			t.Status = *u.Status
		}
		if u.PercentCompleted != nil {
			t.PercentCompleted = *u.PercentCompleted
		}
		if u.StartedOn != nil {
			t.StartedOn = *u.StartedOn
		}
		if u.EndsOn != nil {
			t.EndsOn = *u.EndsOn
		}
		if u.IsNoteworthy != nil {
			t.IsNoteworthy = *u.IsNoteworthy
		}
		if u.GithubIssueURL != nil {
			t.GithubIssueURL = *u.GithubIssueURL
		}
		if t.StartedOn != 0 && t.EndsOn != 0 && t.EndsOn <= t.StartedOn {
			return ErrInvalidDeadline
		}
		t.UpdatedAt = now
		task = t

		if err := Save(tx, t); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogTaskUpdated,
			Meta: map[string]string{audit.MetaTaskID: t.ID, audit.MetaActorID: actor.ID, audit.MetaUserID: t.Assignee},
			Body: map[string]interface{}{
				"old_status": before.Status,
				"new_status": t.Status,
				"percent":    t.PercentCompleted,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}
