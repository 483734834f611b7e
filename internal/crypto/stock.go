// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package crypto

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/models"
)

// Trade types.
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

var (
	ErrStockNotFound     = apperr.NotFound("stock not found")
	ErrStockUnavailable  = apperr.Invalid("not enough shares of the stock are available")
	ErrInsufficientStock = apperr.Invalid("you do not hold enough shares")
	ErrUnknownTradeType  = apperr.Invalid("trade_type must be BUY or SELL")
)

// StockInput lists a stock.
type StockInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Quantity int64  `json:"quantity" validate:"gte=0,lte=1000000000"`
	Price    int64  `json:"price" validate:"gt=0,lte=1000000000"`
}

// TradeInput buys or sells Quantity shares at the current price.
type TradeInput struct {
	TradeType string `json:"trade_type" validate:"required,oneof=BUY SELL"`
	Quantity  int64  `json:"quantity" validate:"gt=0,lte=1000000"`
}

// TradeResult is the state after a trade.
type TradeResult struct {
	Wallet  *models.Wallet    `json:"wallet"`
	Holding *models.UserStock `json:"holding"`
	Stock   *models.Stock     `json:"stock"`
}

// CreateStock lists a new stock.
func (s *Service) CreateStock(ctx context.Context, in StockInput) (*models.Stock, error) {
	st := &models.Stock{
		ID:        database.NewID(),
		Name:      in.Name,
		Quantity:  in.Quantity,
		Price:     in.Price,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		return tx.Put(database.Stocks, st.ID, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Stocks lists every stock ordered by name.
func (s *Service) Stocks(ctx context.Context) ([]models.Stock, error) {
	var out []models.Stock
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.List[models.Stock](tx, database.Stocks, nil)
		return err
	})
	slices.SortFunc(out, func(a, b models.Stock) int { return strings.Compare(a.Name, b.Name) })
	return out, err
}

// UserStocks lists the holdings of userID.
func (s *Service) UserStocks(ctx context.Context, userID string) ([]models.UserStock, error) {
	var out []models.UserStock
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.List(tx, database.UserStocks, func(h *models.UserStock) bool {
			return h.UserID == userID
		})
		return err
	})
	return out, err
}

// Trade buys or sells shares of stockID for userID.
func (s *Service) Trade(ctx context.Context, userID, stockID string, in TradeInput) (*TradeResult, error) {
	if in.TradeType != TradeBuy && in.TradeType != TradeSell {
		return nil, ErrUnknownTradeType
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := s.now().UTC()
	var result *TradeResult
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		stock, err := database.Get[models.Stock](tx, database.Stocks, stockID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrStockNotFound
		}
		if err != nil {
			return err
		}
		w, err := s.activeWallet(tx, userID, now)
		if err != nil {
			return err
		}
		holding := models.UserStock{UserID: userID, StockID: stock.ID, StockName: stock.Name}
		if err := tx.Get(database.UserStocks, holding.Key(), &holding); err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}

		total := stock.Price * in.Quantity
		if in.TradeType == TradeBuy {
			if stock.Quantity < in.Quantity {
				return ErrStockUnavailable
			}
			if w.Balance(models.CurrencyDinero) < total {
				return ErrInsufficientFunds
			}
			w.Add(models.CurrencyDinero, -total)
			stock.Quantity -= in.Quantity
			holding.Quantity += in.Quantity
		} else {
			if holding.Quantity < in.Quantity {
				return ErrInsufficientStock
			}
			w.Add(models.CurrencyDinero, total)
			stock.Quantity += in.Quantity
			holding.Quantity -= in.Quantity
		}
		holding.UpdatedAt = now

		if err := saveWallet(tx, w, now); err != nil {
			return err
		}
		if err := tx.Put(database.Stocks, stock.ID, stock); err != nil {
			return err
		}
		if holding.Quantity == 0 {
			if err := tx.Delete(database.UserStocks, holding.Key()); err != nil && !errors.Is(err, database.ErrNotFound) {
				return err
			}
		} else if err := tx.Put(database.UserStocks, holding.Key(), &holding); err != nil {
			return err
		}
		result = &TradeResult{Wallet: w, Holding: &holding, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordTransfer("stock_" + strings.ToLower(in.TradeType))
	return result, nil
}
