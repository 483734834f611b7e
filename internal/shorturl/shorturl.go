// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package shorturl maps 8 character codes to URLs.
package shorturl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

// CodeLength is the length of generated codes.
const CodeLength = 8

const maxCodeAttempts = 5

var (
	ErrNotFound      = apperr.NotFound("short url not found")
	errCodeExhausted = errors.New("could not allocate a unique short code")
)

// Input is the body of a short URL creation.
type Input struct {
	URL string `json:"url" validate:"required,http_url,max=2048"`
}

// Service creates and resolves short URLs.
type Service struct {
	store   *database.Store
	now     func() time.Time
	newCode func() string
}

// NewService creates the short URL service. A nil now uses time.Now.
func NewService(store *database.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   store,
		now:     now,
		newCode: func() string { return shortuuid.New()[:CodeLength] },
	}
}

// ownerKey scopes the URL index to the creating user.
func ownerKey(userID, url string) string {
	return userID + "|" + url
}

// Create returns the code userID already has for url, or allocates a new
// one. The boolean reports whether a new code was created.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*models.ShortURL, bool, error) {
	var (
		out     *models.ShortURL
		created bool
	)
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		created = false
		code, err := tx.LookupIndex(database.ShortURLs, database.IndexURL, ownerKey(userID, in.URL))
		if err == nil {
			out, err = database.Get[models.ShortURL](tx, database.ShortURLs, code)
			return err
		}
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code = s.newCode()
			exists, err := tx.Exists(database.ShortURLs, code)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			out = &models.ShortURL{
				Code:        code,
				OriginalURL: in.URL,
				CreatedBy:   userID,
				CreatedAt:   s.now().UTC(),
			}
			if err := tx.SetIndex(database.ShortURLs, database.IndexURL, ownerKey(userID, in.URL), code); err != nil {
				return err
			}
			created = true
			return tx.Put(database.ShortURLs, code, out)
		}
		return fmt.Errorf("%w after %d attempts", errCodeExhausted, maxCodeAttempts)
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// Get returns the short URL for code.
func (s *Service) Get(ctx context.Context, code string) (*models.ShortURL, error) {
	var out *models.ShortURL
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.Get[models.ShortURL](tx, database.ShortURLs, code)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	})
	return out, err
}

// Resolve returns the target of code and counts the hit.
func (s *Service) Resolve(ctx context.Context, code string) (*models.ShortURL, error) {
	var out *models.ShortURL
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.Get[models.ShortURL](tx, database.ShortURLs, code)
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out.Hits++
		return tx.Put(database.ShortURLs, code, out)
	})
	return out, err
}
