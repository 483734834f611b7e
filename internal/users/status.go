// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package users

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
)

var (
	ErrStateNotSelfService = apperr.Invalid("only ACTIVE and IDLE can be set directly; OOO goes through a request")
	ErrStatusLockedOOO     = apperr.Invalid("status cannot be changed while out of office")
)

// LoadStatus returns the stored status of userID, or an ACTIVE status when
// none has been recorded.
func LoadStatus(tx *database.Tx, userID string) (*models.UserStatus, error) {
	st, err := database.Get[models.UserStatus](tx, database.UserStatus, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.UserStatus{UserID: userID, Current: models.Status{State: models.StateActive}}, nil
	}
	return st, err
}

// SaveStatus writes st.
func SaveStatus(tx *database.Tx, st *models.UserStatus) error {
	return tx.Put(database.UserStatus, st.UserID, st)
}

// ApplyOOO records an approved out-of-office window. A window that has
// already started becomes the current status; a later one waits as the
// future status.
func ApplyOOO(tx *database.Tx, userID string, from, until int64, message string, now time.Time) (*models.UserStatus, error) {
	st, err := LoadStatus(tx, userID)
	if err != nil {
		return nil, err
	}
	ooo := models.Status{State: models.StateOOO, Message: message, From: from, Until: until, UpdatedAt: now}
	if from <= now.UnixMilli() {
		st.Current = ooo
	} else {
		st.Future = &ooo
	}
	st.UpdatedAt = now
	return st, SaveStatus(tx, st)
}

// Status returns the status of userID.
func (s *Service) Status(ctx context.Context, userID string) (*models.UserStatus, error) {
	var st *models.UserStatus
	err := s.store.View(ctx, func(tx *database.Tx) error {
		if _, err := Load(tx, userID); err != nil {
			return err
		}
		var err error
		st, err = LoadStatus(tx, userID)
		return err
	})
	return st, err
}

// StatusUpdate is the body of a self status change.
type StatusUpdate struct {
	State   models.UserState `json:"state" validate:"required,oneof=ACTIVE IDLE"`
	Message string           `json:"message" validate:"max=200"`
}

// UpdateSelfStatus sets the user's current state to ACTIVE or IDLE.
func (s *Service) UpdateSelfStatus(ctx context.Context, userID string, u StatusUpdate) (*models.UserStatus, error) {
	if u.State != models.StateActive && u.State != models.StateIdle {
		return nil, ErrStateNotSelfService
	}
	now := s.now().UTC()
	var st *models.UserStatus
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		if _, err := Load(tx, userID); err != nil {
			return err
		}
		var err error
		st, err = LoadStatus(tx, userID)
		if err != nil {
			return err
		}
		if st.Current.State == models.StateOOO && (st.Current.Until == 0 || st.Current.Until > now.UnixMilli()) {
			return ErrStatusLockedOOO
		}
		previous := st.Current.State
		st.Current = models.Status{State: u.State, Message: u.Message, UpdatedAt: now}
		st.UpdatedAt = now
		if err := SaveStatus(tx, st); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogStatusUpdated,
			Meta: map[string]string{audit.MetaUserID: userID, audit.MetaActorID: userID},
			Body: map[string]interface{}{"from": previous, "to": u.State},
		})
	})
	if err != nil {
		return nil, err
	}
	s.PublishStatus(ctx, st)
	return st, nil
}

// PublishStatus announces the current status of st.
func (s *Service) PublishStatus(ctx context.Context, st *models.UserStatus) {
	s.publish(ctx, events.UserStatusChanged, st.UserID, StatusEventData(st))
}

// StatusEventData is the payload of a user.status_changed event.
func StatusEventData(st *models.UserStatus) map[string]interface{} {
	return map[string]interface{}{
		"state":   string(st.Current.State),
		"message": st.Current.Message,
		"until":   st.Current.Until,
	}
}

// ApplyDueStatuses promotes future statuses whose window has started and
// ends OOO windows that are over. It returns the number of users changed.
func (s *Service) ApplyDueStatuses(ctx context.Context) (int, error) {
	now := s.now().UTC()
	nowMs := now.UnixMilli()

	var changed []*models.UserStatus
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		changed = changed[:0]
		all, err := database.List[models.UserStatus](tx, database.UserStatus, nil)
		if err != nil {
			return err
		}
		for i := range all {
			st := &all[i]
			if !advanceStatus(st, nowMs, now) {
				continue
			}
			if err := SaveStatus(tx, st); err != nil {
				return err
			}
			if err := audit.Record(tx, now, audit.Entry{
				Type: models.LogStatusUpdated,
				Meta: map[string]string{audit.MetaUserID: st.UserID, audit.MetaActorID: "scheduler"},
				Body: map[string]interface{}{"to": st.Current.State},
			}); err != nil {
				return err
			}
			changed = append(changed, st)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, st := range changed {
		s.PublishStatus(ctx, st)
	}
	return len(changed), nil
}

// advanceStatus moves st forward to now and reports whether it changed.
func advanceStatus(st *models.UserStatus, nowMs int64, now time.Time) bool {
	changed := false
	if st.Current.State == models.StateOOO && st.Current.Until != 0 && st.Current.Until <= nowMs {
		st.Current = models.Status{State: models.StateActive, UpdatedAt: now}
		changed = true
	}
	if st.Future != nil && st.Future.From <= nowMs {
		if st.Future.Until == 0 || st.Future.Until > nowMs {
			st.Current = *st.Future
			st.Current.UpdatedAt = now
		}
		st.Future = nil
		changed = true
	}
	if changed {
		st.UpdatedAt = now
	}
	return changed
}
