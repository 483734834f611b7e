// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// ShortURL maps a short code to an original URL.
type ShortURL struct {
	Code        string    `json:"code"`
	OriginalURL string    `json:"original_url"`
	CreatedBy   string    `json:"created_by"`
	Hits        int64     `json:"hits"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recruiter is an intro request from an outside company aimed at a member.
type Recruiter struct {
	ID              string    `json:"id"`
	Company         string    `json:"company"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	CurrentPosition string    `json:"current_position"`
	Reason          string    `json:"reason"`
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	CreatedAt       time.Time `json:"created_at"`
}

// Challenge is a time-boxed coding challenge users can subscribe to.
type Challenge struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Level        string    `json:"level"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	IsActive     bool      `json:"is_active"`
	Participants []string  `json:"participants"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open reports whether subscriptions are accepted at now.
func (c *Challenge) Open(now time.Time) bool {
	return c.IsActive && !now.After(c.EndAt)
}

// HasParticipant reports whether userID already subscribed.
func (c *Challenge) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
