// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package recruiters records intro requests from companies to members.
package recruiters

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/users"
)

// ErrMemberNotFound is returned when the intro target is not an active member.
var ErrMemberNotFound = apperr.NotFound("member not found")

// Input is the public intro form.
type Input struct {
	Company         string `json:"company" validate:"required,max=100"`
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,e164"`
	CurrentPosition string `json:"current_position" validate:"required,max=100"`
	Reason          string `json:"reason" validate:"required,max=2000"`
	Timestamp       int64  `json:"timestamp" validate:"gte=0"`
}

// Service stores recruiter intros.
type Service struct {
	store *database.Store
	now   func() time.Time
}

// NewService creates the recruiter service. A nil now uses time.Now.
func NewService(store *database.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// AddIntro records an intro aimed at the member username. A Timestamp in
// unix seconds overrides the creation time.
func (s *Service) AddIntro(ctx context.Context, username string, in Input) (*models.Recruiter, error) {
	createdAt := s.now().UTC()
	if in.Timestamp > 0 {
		createdAt = time.Unix(in.Timestamp, 0).UTC()
	}
	var rec *models.Recruiter
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		member, err := users.LoadByUsername(tx, username)
		if errors.Is(err, users.ErrUserNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return err
		}
		if !member.Roles.Member || member.Roles.Archived {
			return ErrMemberNotFound
		}
		rec = &models.Recruiter{
			ID:              database.NewID(),
			Company:         in.Company,
			FirstName:       in.FirstName,
			LastName:        in.LastName,
			Email:           in.Email,
			Phone:           in.Phone,
			CurrentPosition: in.CurrentPosition,
			Reason:          in.Reason,
			UserID:          member.ID,
			Username:        member.Username,
			CreatedAt:       createdAt,
		}
		return tx.Put(database.Recruiters, rec.ID, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns intros newest first and the total.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Recruiter, int, error) {
	var out []models.Recruiter
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.List[models.Recruiter](tx, database.Recruiters, nil)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(out, func(a, b models.Recruiter) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return database.Page(out, limit, offset), len(out), nil
}
