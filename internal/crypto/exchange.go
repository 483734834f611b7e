// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package crypto

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

// MaxRate bounds a single exchange rate.
const MaxRate = 1_000_000

var (
	ErrRateNotFound   = apperr.NotFound("no exchange rate for this currency pair")
	ErrSameCurrency   = apperr.Invalid("source and target must differ")
	ErrDustExchange   = apperr.Invalid("quantity is too small to convert at the current rate")
	ErrInvalidRate    = apperr.Invalid("rate must be greater than 0 and at most 1000000")
	ErrAmountTooLarge = apperr.Invalid("converted amount exceeds the maximum balance")
)

// RateInput sets one exchange rate.
type RateInput struct {
	From string  `json:"from" validate:"required,currency"`
	To   string  `json:"to" validate:"required,currency"`
	Rate float64 `json:"rate" validate:"gt=0,lte=1000000"`
}

// Rates returns every exchange rate ordered by pair.
func (s *Service) Rates(ctx context.Context) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		rates, err = database.List[models.ExchangeRate](tx, database.ExchangeRates, nil)
		return err
	})
	return rates, err
}

// SetRates replaces the given exchange rates.
func (s *Service) SetRates(ctx context.Context, actorID string, in []RateInput) ([]models.ExchangeRate, error) {
	now := s.now().UTC()
	out := make([]models.ExchangeRate, 0, len(in))
	for _, r := range in {
		if r.From == r.To {
			return nil, ErrSameCurrency
		}
		if !(r.Rate > 0 && r.Rate <= MaxRate) {
			return nil, ErrInvalidRate
		}
		out = append(out, models.ExchangeRate{From: r.From, To: r.To, Rate: r.Rate, UpdatedBy: actorID, UpdatedAt: now})
	}
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		for _, r := range out {
			if err := tx.Put(database.ExchangeRates, r.Key(), &r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b models.ExchangeRate) int { return strings.Compare(a.Key(), b.Key()) })
	return out, nil
}

// ExchangeInput converts Quantity units of Source into Target.
type ExchangeInput struct {
	Source   string `json:"source" validate:"required,currency"`
	Target   string `json:"target" validate:"required,currency"`
	Quantity int64  `json:"quantity" validate:"gt=0,lte=1000000000"`
}

// Exchange debits in.Quantity of the source currency and credits the
// converted amount, rounded down, of the target currency.
func (s *Service) Exchange(ctx context.Context, userID string, in ExchangeInput) (*models.Wallet, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.Source == in.Target {
		return nil, ErrSameCurrency
	}
	now := s.now().UTC()
	var w *models.Wallet
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		rate, err := database.Get[models.ExchangeRate](tx, database.ExchangeRates, models.ExchangeRate{From: in.Source, To: in.Target}.Key())
		if errors.Is(err, database.ErrNotFound) {
			return ErrRateNotFound
		}
		if err != nil {
			return err
		}
		credit, err := convert(in.Quantity, rate.Rate)
		if err != nil {
			return err
		}

		w, err = s.activeWallet(tx, userID, now)
		if err != nil {
			return err
		}
		if w.Balance(in.Source) < in.Quantity {
			return ErrInsufficientFunds
		}
		if credit > math.MaxInt64-w.Balance(in.Target) {
			return ErrAmountTooLarge
		}
		w.Add(in.Source, -in.Quantity)
		w.Add(in.Target, credit)
		return saveWallet(tx, w, now)
	})
	if err != nil {
		return nil, err
	}
	recordTransfer("exchange")
	return w, nil
}

// convert applies rate to quantity, rounding down, and range checks the
// product before the int64 cast.
func convert(quantity int64, rate float64) (int64, error) {
	amount := math.Floor(float64(quantity) * rate)
	// 2^63 is exact in float64; NaN fails this comparison too.
	if !(amount < math.MaxInt64) {
		return 0, ErrAmountTooLarge
	}
	if amount <= 0 {
		return 0, ErrDustExchange
	}
	return int64(amount), nil
}
