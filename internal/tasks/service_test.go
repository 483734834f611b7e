// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*database.Store, *Service) {
	t.Helper()
	store, err := database.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(enforcer.Close)
	return store, NewService(store, enforcer, func() time.Time { return testNow })
}

func putUser(t *testing.T, store *database.Store, u *models.User) *models.User {
	t.Helper()
	err := store.Update(context.Background(), func(tx *database.Tx) error {
		return tx.Put(database.Users, u.ID, u)
	})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCreateAndList(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	putUser(t, store, &models.User{ID: "u1", Username: "ann"})

	open, err := svc.Create(ctx, "admin", Input{Title: "Fix login", Type: "bug"})
	if err != nil || open.Status != models.TaskAvailable {
		t.Fatalf("Create() = %+v, %v", open, err)
	}
	assigned, err := svc.Create(ctx, "admin", Input{Title: "Docs", Type: "chore", Assignee: "u1", StartedOn: 100, EndsOn: 200})
	if err != nil || assigned.Status != models.TaskAssigned {
		t.Fatalf("Create(assigned) = %+v, %v", assigned, err)
	}
	if _, err := svc.Create(ctx, "admin", Input{Title: "x", Type: "bug", Assignee: "ghost"}); !errors.Is(err, ErrAssigneeNotFound) {
		t.Errorf("unknown assignee = %v", err)
	}
	if _, err := svc.Create(ctx, "admin", Input{Title: "x", Type: "bug", StartedOn: 200, EndsOn: 100}); !errors.Is(err, ErrInvalidDeadline) {
		t.Errorf("bad deadline = %v", err)
	}

	_, total, err := svc.List(ctx, Filter{})
	if err != nil || total != 2 {
		t.Errorf("List() total = %d, %v", total, err)
	}
	mine, total, _ := svc.List(ctx, Filter{Assignee: "u1"})
	if total != 1 || mine[0].ID != assigned.ID {
		t.Errorf("assignee filter = %v", mine)
	}
	avail, _, _ := svc.List(ctx, Filter{Status: models.TaskAvailable})
	if len(avail) != 1 || avail[0].ID != open.ID {
		t.Errorf("status filter = %v", avail)
	}
	if _, _, err := svc.List(ctx, Filter{Status: "DONE"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown status filter = %v", err)
	}
}

func TestUpdatePermissions(t *testing.T) {
	store, svc := setup(t)
	ctx := context.Background()
	assignee := putUser(t, store, &models.User{ID: "u1", Username: "ann"})
	other := putUser(t, store, &models.User{ID: "u2", Username: "ben"})
	admin := putUser(t, store, &models.User{ID: "a1", Username: "boss", Roles: models.Roles{SuperUser: true}})

	task, err := svc.Create(ctx, admin.ID, Input{Title: "Docs", Type: "chore", Assignee: assignee.ID})
	if err != nil {
		t.Fatal(err)
	}

	percent := 50
	inProgress := models.TaskInProgress
	updated, err := svc.Update(ctx, assignee, task.ID, Update{PercentCompleted: &percent, Status: &inProgress})
	if err != nil || updated.PercentCompleted != 50 || updated.Status != models.TaskInProgress {
		t.Fatalf("assignee update = %+v, %v", updated, err)
	}

	title := "Renamed"
	if _, err := svc.Update(ctx, assignee, task.ID, Update{Title: &title}); !errors.Is(err, ErrFieldRestricted) {
		t.Errorf("assignee title change = %v", err)
	}
	if _, err := svc.Update(ctx, other, task.ID, Update{PercentCompleted: &percent}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-assignee update = %v", err)
	}

	unassign := ""
	updated, err = svc.Update(ctx, admin, task.ID, Update{Title: &title, Assignee: &unassign})
	if err != nil || updated.Title != "Renamed" || updated.Status != models.TaskAvailable {
		t.Errorf("admin update = %+v, %v", updated, err)
	}

	if _, err := svc.Update(ctx, admin, "missing", Update{}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task = %v", err)
	}
}
