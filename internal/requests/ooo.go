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
	"github.com/tomtom215/squadapi/internal/users"
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func createOOO(_ *Service, tx *database.Tx, actor *models.User, in *CreateInput, now time.Time) (*models.Request, bool, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, false, ErrReasonRequired
	}
	if in.From < startOfDay(now).UnixMilli() {
		return nil, false, ErrFromInPast
	}
	if in.Until <= in.From {
		return nil, false, ErrInvalidDateRange
	}
	pending, err := findPending(tx, models.RequestOOO, func(r *models.Request) bool {
		return r.RequestedBy == actor.ID
	})
	if err != nil {
		return nil, false, err
	}
	if pending != nil {
		return nil, false, ErrPendingExists
	}

	req := newRequest(models.RequestOOO, actor, in)
	req.From, req.Until = in.From, in.Until
	return req, true, nil
}

func approveOOO(_ *Service, tx *database.Tx, req *models.Request, _ *ReviewInput, now time.Time) (*effects, error) {
	st, err := users.ApplyOOO(tx, req.RequestedBy, req.From, req.Until, req.Reason, now)
	if err != nil {
		return nil, err
	}
	if st.Current.State != models.StateOOO {
		return nil, nil
	}
	return &effects{status: st}, nil
}
