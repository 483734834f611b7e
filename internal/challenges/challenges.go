// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package challenges manages coding challenges and their subscribers.
package challenges

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

var (
	ErrChallengeNotFound = apperr.NotFound("challenge not found")
	ErrChallengeClosed   = apperr.Invalid("challenge is not active")
	ErrAlreadySubscribed = apperr.Conflict("already subscribed to this challenge")
	ErrInvalidWindow     = apperr.Invalid("end_at must be after start_at")
)

// Input creates a challenge.
type Input struct {
	Title   string    `json:"title" validate:"required,max=200"`
	Level   string    `json:"level" validate:"required,oneof=Easy Medium Hard"`
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// SubscribeInput names the challenge to join.
type SubscribeInput struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
}

// Service implements challenge operations.
type Service struct {
	store *database.Store
	now   func() time.Time
}

// NewService creates the challenge service. A nil now uses time.Now.
func NewService(store *database.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Create stores a new active challenge.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (*models.Challenge, error) {
	if !in.EndAt.After(in.StartAt) {
		return nil, ErrInvalidWindow
	}
	c := &models.Challenge{
		ID:           database.NewID(),
		Title:        in.Title,
		Level:        in.Level,
		StartAt:      in.StartAt.UTC(),
		EndAt:        in.EndAt.UTC(),
		IsActive:     true,
		Participants: []string{},
		CreatedBy:    actorID,
		CreatedAt:    s.now().UTC(),
	}
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		return tx.Put(database.Challenges, c.ID, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns challenges starting soonest first. IsActive reflects the
// time of the call.
func (s *Service) List(ctx context.Context) ([]models.Challenge, error) {
	now := s.now()
	var out []models.Challenge
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.List[models.Challenge](tx, database.Challenges, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsActive = out[i].Open(now)
	}
	slices.SortFunc(out, func(a, b models.Challenge) int { return a.StartAt.Compare(b.StartAt) })
	return out, nil
}

// Subscribe adds userID to an open challenge.
func (s *Service) Subscribe(ctx context.Context, userID string, in SubscribeInput) (*models.Challenge, error) {
	now := s.now()
	var c *models.Challenge
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		var err error
		c, err = database.Get[models.Challenge](tx, database.Challenges, in.ChallengeID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrChallengeNotFound
		}
		if err != nil {
			return err
		}
		if !c.Open(now) {
			return ErrChallengeClosed
		}
		if c.HasParticipant(userID) {
			return ErrAlreadySubscribed
		}
		c.Participants = append(c.Participants, userID)
		return tx.Put(database.Challenges, c.ID, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
