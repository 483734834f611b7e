// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/authz"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
	"github.com/tomtom215/squadapi/internal/users"
)

// Impersonation actions.
const (
	ActionStart = "START"
	ActionStop  = "STOP"
)

func createImpersonation(s *Service, tx *database.Tx, actor *models.User, in *CreateInput, _ time.Time) (*models.Request, bool, error) {
	if !s.authz.Allowed(actor.RoleNames(), authz.ObjImpersonation, authz.ActRequest) {
		return nil, false, ErrNotAllowed
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, false, ErrReasonRequired
	}
	if in.ImpersonatedUserID == actor.ID {
		return nil, false, ErrSelfImpersonation
	}
	if _, err := users.Load(tx, in.ImpersonatedUserID); err != nil {
		return nil, false, err
	}
	pending, err := findPending(tx, models.RequestImpersonation, func(r *models.Request) bool {
		return r.RequestedBy == actor.ID && r.ImpersonatedUserID == in.ImpersonatedUserID
	})
	if err != nil {
		return nil, false, err
	}
	if pending != nil {
		return nil, false, ErrPendingExists
	}

	req := newRequest(models.RequestImpersonation, actor, in)
	req.ImpersonatedUserID = in.ImpersonatedUserID
	return req, true, nil
}

func approveImpersonation(*Service, *database.Tx, *models.Request, *ReviewInput, time.Time) (*effects, error) {
	return nil, nil
}

// Session is the token handed out when an impersonation starts or stops.
type Session struct {
	Request *models.Request `json:"request"`
	Token   string          `json:"token"`
}

// Impersonate runs action on an approved impersonation request. actorID is
// the real user behind the session, never the impersonated one.
func (s *Service) Impersonate(ctx context.Context, actorID, id, action string) (*Session, error) {
	switch strings.ToUpper(action) {
	case ActionStart:
		return s.startImpersonation(ctx, actorID, id)
	case ActionStop:
		return s.stopImpersonation(ctx, actorID, id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (s *Service) startImpersonation(ctx context.Context, actorID, id string) (*Session, error) {
	var token string
	req, err := s.updateImpersonation(ctx, actorID, id, models.LogImpersonationStarted, func(r *models.Request, now time.Time) error {
		if r.State != models.RequestApproved {
			return ErrNotApproved
		}
		if r.StartedAt != nil {
			return ErrAlreadyStarted
		}
		// Signing happens before commit so a failure leaves the request startable.
		var err error
		token, err = s.tokens.GenerateImpersonationToken(r.ImpersonatedUserID, actorID, r.ID)
		if err != nil {
			return fmt.Errorf("issue impersonation token: %w", err)
		}
		r.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.ImpersonationStarted, actorID, req.ID, map[string]interface{}{
		"impersonated_user_id": req.ImpersonatedUserID,
	}))
	return &Session{Request: req, Token: token}, nil
}

func (s *Service) stopImpersonation(ctx context.Context, actorID, id string) (*Session, error) {
	var token string
	req, err := s.updateImpersonation(ctx, actorID, id, models.LogImpersonationStopped, func(r *models.Request, now time.Time) error {
		if r.StartedAt == nil {
			return ErrNotStarted
		}
		if r.IsImpersonationFinished {
			return ErrAlreadyFinished
		}
		var err error
		token, err = s.tokens.GenerateToken(actorID)
		if err != nil {
			return fmt.Errorf("issue session token: %w", err)
		}
		r.IsImpersonationFinished = true
		r.EndedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.New(events.ImpersonationStopped, actorID, req.ID, map[string]interface{}{
		"impersonated_user_id": req.ImpersonatedUserID,
	}))
	return &Session{Request: req, Token: token}, nil
}

// ImpersonationActive reports whether the impersonation request has been
// started and not yet stopped. Unknown ids are inactive.
func (s *Service) ImpersonationActive(ctx context.Context, requestID string) (bool, error) {
	var active bool
	err := s.store.View(ctx, func(tx *database.Tx) error {
		req, err := Load(tx, requestID)
		if err != nil {
			return err
		}
		active = req.Type == models.RequestImpersonation && req.StartedAt != nil && !req.IsImpersonationFinished
		return nil
	})
	if errors.Is(err, ErrRequestNotFound) {
		return false, nil
	}
	return active, err
}

func (s *Service) updateImpersonation(ctx context.Context, actorID, id string, logType models.LogType, change func(*models.Request, time.Time) error) (*models.Request, error) {
	now := s.now().UTC()
	var req *models.Request
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		var err error
		req, err = Load(tx, id)
		if err != nil {
			return err
		}
		if req.Type != models.RequestImpersonation || req.RequestedBy != actorID {
			return ErrNotAllowed
		}
		if err := change(req, now); err != nil {
			return err
		}
		req.UpdatedAt = now
		if err := save(tx, req); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: logType,
			Meta: map[string]string{
				audit.MetaRequestID: req.ID,
				audit.MetaUserID:    req.ImpersonatedUserID,
				audit.MetaActorID:   actorID,
			},
		})
	})
	return req, err
}
