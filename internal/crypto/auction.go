// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package crypto

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tomtom215/squadapi/internal/apperr"
	"github.com/tomtom215/squadapi/internal/audit"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
	"github.com/tomtom215/squadapi/internal/models"
)

var (
	ErrAuctionNotFound  = apperr.NotFound("auction not found")
	ErrAuctionClosed    = apperr.Invalid("auction is closed")
	ErrOwnAuction       = apperr.Invalid("sellers cannot bid on their own auction")
	ErrBidTooLow        = apperr.Invalid("bid is too low")
	ErrInsufficientItem = apperr.Invalid("seller does not hold enough of the item")
	ErrPaymentCurrency  = apperr.Invalid("dinero is the payment currency and cannot be auctioned")
)

// AuctionInput opens an auction.
type AuctionInput struct {
	ItemType     string `json:"item_type" validate:"required,max=64"`
	Quantity     int64  `json:"quantity" validate:"gt=0,lte=1000000"`
	InitialPrice int64  `json:"initial_price" validate:"gte=0,lte=1000000000"`
	EndTimeHours int    `json:"end_time_hours" validate:"gt=0,lte=720"`
}

// BidInput is one offer.
type BidInput struct {
	Bid int64 `json:"bid" validate:"gt=0"`
}

func loadAuction(tx *database.Tx, id string) (*models.Auction, error) {
	a, err := database.Get[models.Auction](tx, database.Auctions, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrAuctionNotFound
	}
	return a, err
}

// holding reads and adjusts what w holds of itemType. Currencies other than
// dinero are held in Currencies; everything else in Items.
func holding(w *models.Wallet, itemType string) int64 {
	if itemType == models.CurrencyNeelam {
		return w.Balance(itemType)
	}
	return w.Items[itemType]
}

func addHolding(w *models.Wallet, itemType string, delta int64) {
	if itemType == models.CurrencyNeelam {
		w.Add(itemType, delta)
		return
	}
	w.AddItem(itemType, delta)
}

// CreateAuction escrows the items from the seller's wallet and opens the
// auction.
func (s *Service) CreateAuction(ctx context.Context, sellerID string, in AuctionInput) (*models.Auction, error) {
	if in.ItemType == models.CurrencyDinero {
		return nil, ErrPaymentCurrency
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := s.now().UTC()
	auction := &models.Auction{
		ID:           database.NewID(),
		Seller:       sellerID,
		ItemType:     in.ItemType,
		Quantity:     in.Quantity,
		InitialPrice: in.InitialPrice,
		Bids:         []models.Bid{},
		StartTime:    now,
		EndTime:      now.Add(time.Duration(in.EndTimeHours) * time.Hour),
	}
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		w, err := s.activeWallet(tx, sellerID, now)
		if err != nil {
			return err
		}
		if holding(w, in.ItemType) < in.Quantity {
			return ErrInsufficientItem
		}
		addHolding(w, in.ItemType, -in.Quantity)
		if err := saveWallet(tx, w, now); err != nil {
			return err
		}
		return tx.Put(database.Auctions, auction.ID, auction)
	})
	if err != nil {
		return nil, err
	}
	recordTransfer("auction_escrow")
	return auction, nil
}

// Auction loads one auction.
func (s *Service) Auction(ctx context.Context, id string) (*models.Auction, error) {
	var a *models.Auction
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		a, err = loadAuction(tx, id)
		return err
	})
	return a, err
}

// AuctionFilter narrows Auctions. Active keeps only auctions open at the
// time of the call.
type AuctionFilter struct {
	Active bool
	Seller string
	Limit  int
	Offset int
}

// Auctions lists auctions ending soonest first.
func (s *Service) Auctions(ctx context.Context, f AuctionFilter) ([]models.Auction, int, error) {
	now := s.now()
	var found []models.Auction
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		found, err = database.List(tx, database.Auctions, func(a *models.Auction) bool {
			return (!f.Active || a.IsOpen(now)) && (f.Seller == "" || a.Seller == f.Seller)
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(found, func(a, b models.Auction) int { return a.EndTime.Compare(b.EndTime) })
	return database.Page(found, f.Limit, f.Offset), len(found), nil
}

// Bid places a bid. The bidder's dinero is checked but not held; it moves at
// settlement.
func (s *Service) Bid(ctx context.Context, bidderID, auctionID string, in BidInput) (*models.Auction, error) {
	now := s.now().UTC()
	var auction *models.Auction
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		a, err := loadAuction(tx, auctionID)
		if err != nil {
			return err
		}
		if !a.IsOpen(now) {
			return ErrAuctionClosed
		}
		if a.Seller == bidderID {
			return ErrOwnAuction
		}
		if in.Bid < a.MinimumBid() {
			return ErrBidTooLow
		}
		w, err := s.activeWallet(tx, bidderID, now)
		if err != nil {
			return err
		}
		if w.Balance(models.CurrencyDinero) < in.Bid {
			return ErrInsufficientFunds
		}
		a.HighestBid = in.Bid
		a.HighestBidder = bidderID
		a.Bids = append(a.Bids, models.Bid{Bidder: bidderID, Amount: in.Bid, Time: now})
		auction = a
		return tx.Put(database.Auctions, a.ID, a)
	})
	if err != nil {
		return nil, err
	}
	metrics.AuctionBids.Inc()
	return auction, nil
}

// SettleDue settles every auction whose end time has passed and returns how
// many were settled.
func (s *Service) SettleDue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	var due []string
	err := s.store.View(ctx, func(tx *database.Tx) error {
		closed, err := database.List(tx, database.Auctions, func(a *models.Auction) bool {
			return !a.Settled && !now.Before(a.EndTime)
		})
		for i := range closed {
			due = append(due, closed[i].ID)
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range due {
		a, err := s.settle(ctx, id, now)
		if err != nil {
			return settled, err
		}
		if a == nil {
			continue
		}
		settled++
		s.emit(ctx, events.New(events.AuctionSettled, a.HighestBidder, a.ID, map[string]interface{}{
			"seller":    a.Seller,
			"item_type": a.ItemType,
			"quantity":  a.Quantity,
			"price":     a.HighestBid,
		}))
	}
	return settled, nil
}

// settle closes one auction. It returns nil when another run settled it
// first.
func (s *Service) settle(ctx context.Context, id string, now time.Time) (*models.Auction, error) {
	var result *models.Auction
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		result = nil
		a, err := loadAuction(tx, id)
		if err != nil || a.Settled {
			return err
		}
		seller, err := s.loadWallet(tx, a.Seller, now)
		if err != nil {
			return err
		}

		winner := a.HighestBidder
		var buyer *models.Wallet
		if winner != "" {
			buyer, err = s.loadWallet(tx, winner, now)
			if err != nil {
				return err
			}
			if buyer.Balance(models.CurrencyDinero) < a.HighestBid {
				logging.Ctx(ctx).Warn().
					Str("auction_id", a.ID).
					Str("bidder", winner).
					Msg("Winning bidder can no longer pay, returning items to seller")
				winner = ""
			}
		}

		if winner == "" {
			addHolding(seller, a.ItemType, a.Quantity)
		} else {
			buyer.Add(models.CurrencyDinero, -a.HighestBid)
			addHolding(buyer, a.ItemType, a.Quantity)
			seller.Add(models.CurrencyDinero, a.HighestBid)
			if err := saveWallet(tx, buyer, now); err != nil {
				return err
			}
		}
		if err := saveWallet(tx, seller, now); err != nil {
			return err
		}

		a.Settled = true
		a.SettledAt = &now
		if winner == "" {
			a.HighestBidder = ""
		}
		if err := tx.Put(database.Auctions, a.ID, a); err != nil {
			return err
		}
		result = a
		return audit.Record(tx, now, audit.Entry{
			Type: models.LogAuctionSettled,
			Meta: map[string]string{
				audit.MetaAuctionID: a.ID,
				audit.MetaUserID:    a.Seller,
				audit.MetaActorID:   "scheduler",
			},
			Body: map[string]interface{}{"winner": winner, "price": a.HighestBid},
		})
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		recordTransfer("auction_settlement")
	}
	return result, nil
}
