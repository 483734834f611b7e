// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package users

import (
	"context"

	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
)

// Members lists active members ordered by username.
func (s *Service) Members(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	return s.List(ctx, ListFilter{Role: models.RoleMember, Limit: limit, Offset: offset})
}

// MoveToMember grants the member role. An onboarding user becomes ACTIVE.
func (s *Service) MoveToMember(ctx context.Context, actorID, username string) (*models.User, error) {
	now := s.now().UTC()
	var (
		user   *models.User
		status *models.UserStatus
	)
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		status = nil
		u, err := LoadByUsername(tx, username)
		if err != nil {
			return err
		}
		if u.Roles.Member {
			return ErrAlreadyMember
		}
		u.Roles.Member = true
		u.UpdatedAt = now
		if err := tx.Put(database.Users, u.ID, u); err != nil {
			return err
		}

		st, err := LoadStatus(tx, u.ID)
		if err != nil {
			return err
		}
		if st.Current.State == models.StateOnboarding {
			st.Current = models.Status{State: models.StateActive, UpdatedAt: now}
			st.UpdatedAt = now
			if err := SaveStatus(tx, st); err != nil {
				return err
			}
			status = st
		}
		user = u
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogMemberMoved,
			Meta: map[string]string{audit.MetaUserID: u.ID, audit.MetaActorID: actorID},
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.UserRolesUpdated, user.ID, map[string]interface{}{"actor_id": actorID})
	if status != nil {
		s.PublishStatus(ctx, status)
	}
	return user, nil
}

// Archive marks a user archived, removing every other role from effect.
func (s *Service) Archive(ctx context.Context, actorID, username, reason string) (*models.User, error) {
	now := s.now().UTC()
	var user *models.User
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		u, err := LoadByUsername(tx, username)
		if err != nil {
			return err
		}
		if u.Roles.Archived {
			return ErrAlreadyArchived
		}
		u.Roles.Archived = true
		u.UpdatedAt = now
		user = u
		if err := tx.Put(database.Users, u.ID, u); err != nil {
			return err
		}
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogMemberArchived,
			Meta: map[string]string{audit.MetaUserID: u.ID, audit.MetaActorID: actorID},
			Body: map[string]interface{}{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.UserArchived, user.ID, map[string]interface{}{"actor_id": actorID, "reason": reason})
	return user, nil
}
