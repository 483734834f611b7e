// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package requests

import (
	"slices"
	"time"

	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/tasks"
)

// Task requests carry proposal dates in milliseconds; tasks store seconds.
const msPerSecond = int64(time.Second / time.Millisecond)

func createTaskRequest(s *Service, tx *database.Tx, actor *models.User, in *CreateInput, now time.Time) (*models.Request, bool, error) {
	if !s.authz.Allowed(actor.RoleNames(), authz.ObjTasks, authz.ActRequest) {
		return nil, false, ErrNotAllowed
	}
	if in.ProposedDeadline <= in.ProposedStartDate {
		return nil, false, ErrInvalidProposal
	}

	var (
		same  func(*models.Request) bool
		title string
	)
	switch in.RequestType {
	case models.TaskRequestAssignment:
		task, err := tasks.Load(tx, in.TaskID)
		if err != nil {
			return nil, false, err
		}
		if task.Status != models.TaskAvailable || task.Assignee != "" {
			return nil, false, ErrTaskUnavailable
		}
		title = task.Title
		same = func(r *models.Request) bool {
			return r.TaskRequestType == models.TaskRequestAssignment && r.TaskID == task.ID
		}
	case models.TaskRequestCreation:
		if in.ExternalIssueURL == "" || in.Title == "" {
			return nil, false, ErrIssueRequired
		}
		title = in.Title
		same = func(r *models.Request) bool {
			return r.TaskRequestType == models.TaskRequestCreation && r.ExternalIssueURL == in.ExternalIssueURL
		}
	default:
		return nil, false, ErrUnknownTaskRequestType
	}

	applicant := models.TaskRequestUser{
		UserID:            actor.ID,
		Status:            models.RequestPending,
		ProposedStartDate: in.ProposedStartDate,
		ProposedDeadline:  in.ProposedDeadline,
		Description:       in.Description,
		MarkdownEnabled:   in.MarkdownEnabled,
		RequestedAt:       now,
	}

	existing, err := findPending(tx, models.RequestTask, same)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if slices.ContainsFunc(existing.Users, func(u models.TaskRequestUser) bool { return u.UserID == actor.ID }) {
			return nil, false, ErrAlreadyApplied
		}
		existing.Users = append(existing.Users, applicant)
		existing.UsersCount = len(existing.Users)
		return existing, false, nil
	}

	req := newRequest(models.RequestTask, actor, in)
	req.TaskRequestType = in.RequestType
	req.TaskID = in.TaskID
	req.Title = title
	req.ExternalIssueURL = in.ExternalIssueURL
	req.Users = []models.TaskRequestUser{applicant}
	req.UsersCount = 1
	return req, true, nil
}

func approveTaskRequest(_ *Service, tx *database.Tx, req *models.Request, in *ReviewInput, now time.Time) (*effects, error) {
	idx := slices.IndexFunc(req.Users, func(u models.TaskRequestUser) bool {
		return u.UserID == in.UserID && u.Status == models.RequestPending
	})
	if idx < 0 {
		return nil, ErrApplicantRequired
	}
	chosen := req.Users[idx]

	var task *models.Task
	switch req.TaskRequestType {
	case models.TaskRequestAssignment:
		var err error
		task, err = tasks.Load(tx, req.TaskID)
		if err != nil {
			return nil, err
		}
		if task.Status != models.TaskAvailable || task.Assignee != "" {
			return nil, ErrTaskUnavailable
		}
	default:
		task = &models.Task{
			ID:             database.NewID(),
			Title:          req.Title,
			Type:           "feature",
			GithubIssueURL: req.ExternalIssueURL,
			CreatedBy:      in.reviewer,
			CreatedAt:      now,
		}
		req.TaskID = task.ID
	}
	task.Assignee = chosen.UserID
	task.Status = models.TaskAssigned
	task.StartedOn = chosen.ProposedStartDate / msPerSecond
	task.EndsOn = chosen.ProposedDeadline / msPerSecond
	task.UpdatedAt = now
	if err := tasks.Save(tx, task); err != nil {
		return nil, err
	}

	for i := range req.Users {
		if i == idx {
			req.Users[i].Status = models.RequestApproved
		} else {
			req.Users[i].Status = models.RequestRejected
		}
	}
	return nil, nil
}

func rejectTaskRequest(req *models.Request) {
	for i := range req.Users {
		req.Users[i].Status = models.RequestRejected
	}
}
