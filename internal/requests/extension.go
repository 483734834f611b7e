// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package requests

import (
	"strings"
	"time"

	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/tasks"
)

func createExtension(_ *Service, tx *database.Tx, actor *models.User, in *CreateInput, _ time.Time) (*models.Request, bool, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, false, ErrReasonRequired
	}
	task, err := tasks.Load(tx, in.TaskID)
	if err != nil {
		return nil, false, err
	}
	if task.Assignee != actor.ID {
		return nil, false, ErrTaskNotAssigned
	}
	if in.OldEndsOn != task.EndsOn {
		return nil, false, ErrEndsOnMismatch
	}
	if in.NewEndsOn <= in.OldEndsOn {
		return nil, false, ErrDeadlineNotLater
	}

	prior, err := database.List(tx, database.Requests, func(r *models.Request) bool {
		return r.Type == models.RequestExtension && r.TaskID == task.ID
	})
	if err != nil {
		return nil, false, err
	}
	for i := range prior {
		if prior[i].IsPending() {
			return nil, false, ErrPendingExists
		}
	}

	req := newRequest(models.RequestExtension, actor, in)
	req.TaskID = task.ID
	req.Title = in.Title
	if req.Title == "" {
		req.Title = task.Title
	}
	req.OldEndsOn = in.OldEndsOn
	req.NewEndsOn = in.NewEndsOn
	req.RequestNumber = len(prior) + 1
	return req, true, nil
}

func approveExtension(_ *Service, tx *database.Tx, req *models.Request, _ *ReviewInput, now time.Time) (*effects, error) {
	task, err := tasks.Load(tx, req.TaskID)
	if err != nil {
		return nil, err
	}
	task.EndsOn = req.NewEndsOn
	task.UpdatedAt = now
	return nil, tasks.Save(tx, task)
}
