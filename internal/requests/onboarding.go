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

// Onboarding lasts this long from joining Discord before any extension.
const onboardingPeriod = 31 * 24 * time.Hour

const maxOnboardingDays = 31

func createOnboarding(_ *Service, tx *database.Tx, actor *models.User, in *CreateInput, _ time.Time) (*models.Request, bool, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, false, ErrReasonRequired
	}
	if in.NumberOfDays < 1 || in.NumberOfDays > maxOnboardingDays {
		return nil, false, ErrInvalidDays
	}
	st, err := users.LoadStatus(tx, actor.ID)
	if err != nil {
		return nil, false, err
	}
	if st.Current.State != models.StateOnboarding {
		return nil, false, ErrNotOnboarding
	}

	history, err := database.List(tx, database.Requests, func(r *models.Request) bool {
		return r.Type == models.RequestOnboarding && r.RequestedBy == actor.ID
	})
	if err != nil {
		return nil, false, err
	}

	joined := actor.CreatedAt
	if actor.DiscordJoinedAt != nil {
		joined = *actor.DiscordJoinedAt
	}
	oldEndsOn := joined.Add(onboardingPeriod).Unix()
	var newest *models.Request
	for i := range history {
		r := &history[i]
		if r.IsPending() {
			return nil, false, ErrPendingExists
		}
		if r.State == models.RequestApproved && (newest == nil || r.UpdatedAt.After(newest.UpdatedAt)) {
			newest = r
		}
	}
	if newest != nil {
		oldEndsOn = newest.NewEndsOn
	}

	req := newRequest(models.RequestOnboarding, actor, in)
	req.NumberOfDays = in.NumberOfDays
	req.OldEndsOn = oldEndsOn
	req.NewEndsOn = oldEndsOn + int64(in.NumberOfDays)*int64((24*time.Hour)/time.Second)
	req.RequestNumber = len(history) + 1
	return req, true, nil
}

// Approval only records the new deadline on the request.
func approveOnboarding(*Service, *database.Tx, *models.Request, *ReviewInput, time.Time) (*effects, error) {
	return nil, nil
}
