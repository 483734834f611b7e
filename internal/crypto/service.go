// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package crypto runs the toy economy: wallets, currency exchange, auctions,
// the product shop and the stock market. Every balance change happens inside
// one store transaction together with the checks that guard it.
package crypto

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
	"github.com/tomtom215/squadapi/internal/models"
)

var (
	ErrInsufficientFunds = apperr.Invalid("insufficient balance")
	ErrInvalidQuantity   = apperr.Invalid("quantity must be greater than zero")
	ErrInactiveWallet    = apperr.Forbidden("wallet is inactive")
)

// Service implements the economy operations.
type Service struct {
	store   *database.Store
	wallets config.WalletConfig
	events  events.Publisher
	now     func() time.Time
}

// Config holds Service dependencies. Events and Now are optional.
type Config struct {
	Store  *database.Store
	Wallet config.WalletConfig
	Events events.Publisher
	Now    func() time.Time
}

// NewService creates the economy service.
func NewService(cfg Config) *Service {
	s := &Service{store: cfg.Store, wallets: cfg.Wallet, events: cfg.Events, now: cfg.Now}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// loadWallet returns the wallet of userID, building the starting wallet when
// none exists yet. The caller persists it.
func (s *Service) loadWallet(tx *database.Tx, userID string, now time.Time) (*models.Wallet, error) {
	w, err := database.Get[models.Wallet](tx, database.Wallets, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Wallet{
			UserID: userID,
			Currencies: map[string]int64{
				models.CurrencyDinero: s.wallets.StartingDinero,
				models.CurrencyNeelam: s.wallets.StartingNeelam,
			},
			Items:     map[string]int64{},
			IsActive:  true,
			UpdatedAt: now,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if w.Items == nil {
		w.Items = map[string]int64{}
	}
	return w, nil
}

func saveWallet(tx *database.Tx, w *models.Wallet, now time.Time) error {
	w.UpdatedAt = now
	return tx.Put(database.Wallets, w.UserID, w)
}

// activeWallet is loadWallet for balance changes.
func (s *Service) activeWallet(tx *database.Tx, userID string, now time.Time) (*models.Wallet, error) {
	w, err := s.loadWallet(tx, userID, now)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, ErrInactiveWallet
	}
	return w, nil
}

// Wallet returns the wallet of userID, creating it on first access.
func (s *Service) Wallet(ctx context.Context, userID string) (*models.Wallet, error) {
	now := s.now().UTC()
	var w *models.Wallet
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		exists, err := tx.Exists(database.Wallets, userID)
		if err != nil {
			return err
		}
		w, err = s.loadWallet(tx, userID, now)
		if err != nil || exists {
			return err
		}
		return saveWallet(tx, w, now)
	})
	return w, err
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", string(e.Type)).Msg("Failed to publish event")
	}
}

func recordTransfer(kind string) {
	metrics.WalletTransfers.WithLabelValues(kind).Inc()
}
