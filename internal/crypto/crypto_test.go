// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package crypto

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/database"
	"github.com/tomtom215/squadapi/internal/events"
	"github.com/tomtom215/squadapi/internal/models"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *time.Time, *events.Recorder) {
	t.Helper()
	store, err := database.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	now := testNow
	rec := &events.Recorder{}
	svc := NewService(Config{
		Store:  store,
		Wallet: config.WalletConfig{StartingDinero: 1000, StartingNeelam: 10},
		Events: rec,
		Now:    func() time.Time { return now },
	})
	return svc, &now, rec
}

func TestWalletCreatedLazily(t *testing.T) {
	svc, _, _ := setup(t)
	w, err := svc.Wallet(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance(models.CurrencyDinero) != 1000 || w.Balance(models.CurrencyNeelam) != 10 || !w.IsActive {
		t.Errorf("wallet = %+v", w)
	}
}

func TestExchange(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "neelam", Target: "dinero", Quantity: 1}); !errors.Is(err, ErrRateNotFound) {
		t.Errorf("no rate = %v", err)
	}
	if _, err := svc.SetRates(ctx, "admin", []RateInput{{From: "neelam", To: "dinero", Rate: 2.5}, {From: "dinero", To: "neelam", Rate: 0.4}}); err != nil {
		t.Fatal(err)
	}
	rates, _ := svc.Rates(ctx)
	if len(rates) != 2 {
		t.Errorf("rates = %v", rates)
	}

	w, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "neelam", Target: "dinero", Quantity: 3})
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance("neelam") != 7 || w.Balance("dinero") != 1007 {
		t.Errorf("after exchange = %v", w.Currencies)
	}
	if _, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "neelam", Target: "dinero", Quantity: 8}); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdraw = %v", err)
	}
	if _, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "dinero", Target: "neelam", Quantity: 2}); !errors.Is(err, ErrDustExchange) {
		t.Errorf("dust = %v", err)
	}
	if _, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "dinero", Target: "neelam", Quantity: 0}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity = %v", err)
	}
}

func TestExchangeBounds(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	for _, rate := range []float64{0, -1, MaxRate + 1, math.Inf(1), math.NaN()} {
		if _, err := svc.SetRates(ctx, "admin", []RateInput{{From: "neelam", To: "dinero", Rate: rate}}); !errors.Is(err, ErrInvalidRate) {
			t.Errorf("SetRates(%v) = %v, want ErrInvalidRate", rate, err)
		}
	}

	// A rate written before the bound existed must not wrap the credit.
	huge := models.ExchangeRate{From: "neelam", To: "dinero", Rate: 1e300}
	err := svc.store.Update(ctx, func(tx *database.Tx) error {
		return tx.Put(database.ExchangeRates, huge.Key(), &huge)
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "neelam", Target: "dinero", Quantity: 1}); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("huge rate = %v, want ErrAmountTooLarge", err)
	}

	if _, err := svc.SetRates(ctx, "admin", []RateInput{{From: "neelam", To: "dinero", Rate: MaxRate}}); err != nil {
		t.Fatal(err)
	}
	w, err := svc.Wallet(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	w.Add("dinero", math.MaxInt64-w.Balance("dinero")-5)
	err = svc.store.Update(ctx, func(tx *database.Tx) error { return saveWallet(tx, w, testNow) })
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Exchange(ctx, "u1", ExchangeInput{Source: "neelam", Target: "dinero", Quantity: 1}); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("balance overflow = %v, want ErrAmountTooLarge", err)
	}
	after, err := svc.Wallet(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if after.Balance("dinero") != math.MaxInt64-5 || after.Balance("neelam") != 10 {
		t.Errorf("wallet changed by rejected exchange: %v", after.Currencies)
	}
}

func TestAuctionLifecycle(t *testing.T) {
	svc, clock, rec := setup(t)
	ctx := context.Background()

	if _, err := svc.CreateAuction(ctx, "seller", AuctionInput{ItemType: "neelam", Quantity: 11, InitialPrice: 100, EndTimeHours: 1}); !errors.Is(err, ErrInsufficientItem) {
		t.Errorf("over-escrow = %v", err)
	}
	a, err := svc.CreateAuction(ctx, "seller", AuctionInput{ItemType: "neelam", Quantity: 4, InitialPrice: 100, EndTimeHours: 1})
	if err != nil {
		t.Fatal(err)
	}
	if w, _ := svc.Wallet(ctx, "seller"); w.Balance("neelam") != 6 {
		t.Errorf("escrow left %d neelam", w.Balance("neelam"))
	}

	bids := []struct {
		bidder string
		amount int64
		want   error
	}{
		{"seller", 200, ErrOwnAuction},
		{"b1", 99, ErrBidTooLow},
		{"b1", 100, nil},
		{"b2", 100, ErrBidTooLow},
		{"b2", 1001, ErrInsufficientFunds},
		{"b2", 150, nil},
	}
	for _, b := range bids {
		_, err := svc.Bid(ctx, b.bidder, a.ID, BidInput{Bid: b.amount})
		if !errors.Is(err, b.want) {
			t.Errorf("Bid(%s, %d) = %v, want %v", b.bidder, b.amount, err, b.want)
		}
	}

	active, total, _ := svc.Auctions(ctx, AuctionFilter{Active: true})
	if total != 1 || active[0].HighestBidder != "b2" {
		t.Errorf("active = %+v", active)
	}

	*clock = testNow.Add(2 * time.Hour)
	if _, err := svc.Bid(ctx, "b1", a.ID, BidInput{Bid: 500}); !errors.Is(err, ErrAuctionClosed) {
		t.Errorf("late bid = %v", err)
	}
	n, err := svc.SettleDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("SettleDue() = %d, %v", n, err)
	}
	if n, _ := svc.SettleDue(ctx); n != 0 {
		t.Errorf("second settle = %d", n)
	}

	seller, _ := svc.Wallet(ctx, "seller")
	buyer, _ := svc.Wallet(ctx, "b2")
	if seller.Balance("dinero") != 1150 || buyer.Balance("dinero") != 850 || buyer.Balance("neelam") != 14 {
		t.Errorf("seller=%v buyer=%v", seller.Currencies, buyer.Currencies)
	}
	if types := rec.Types(); len(types) != 1 || types[0] != events.AuctionSettled {
		t.Errorf("events = %v", types)
	}
}

func TestAuctionWithoutBidsReturnsItems(t *testing.T) {
	svc, clock, _ := setup(t)
	ctx := context.Background()
	if _, err := svc.CreateAuction(ctx, "seller", AuctionInput{ItemType: "neelam", Quantity: 5, InitialPrice: 10, EndTimeHours: 1}); err != nil {
		t.Fatal(err)
	}
	*clock = testNow.Add(time.Hour)
	if n, err := svc.SettleDue(ctx); err != nil || n != 1 {
		t.Fatalf("SettleDue() = %d, %v", n, err)
	}
	if w, _ := svc.Wallet(ctx, "seller"); w.Balance("neelam") != 10 {
		t.Errorf("neelam after return = %d", w.Balance("neelam"))
	}
	if _, err := svc.CreateAuction(ctx, "seller", AuctionInput{ItemType: "dinero", Quantity: 1, EndTimeHours: 1}); !errors.Is(err, ErrPaymentCurrency) {
		t.Errorf("dinero auction = %v", err)
	}
}

func TestPurchase(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	limited := int64(3)
	p, err := svc.CreateProduct(ctx, ProductInput{Name: "Sticker", Price: 100, QuantityAvailable: &limited})
	if err != nil {
		t.Fatal(err)
	}

	w, err := svc.Purchase(ctx, "u1", p.ID, PurchaseInput{Quantity: 2})
	if err != nil || w.Balance("dinero") != 800 || w.Items[p.ID] != 2 {
		t.Fatalf("Purchase() = %+v, %v", w, err)
	}
	if _, err := svc.Purchase(ctx, "u2", p.ID, PurchaseInput{Quantity: 2}); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("over stock = %v", err)
	}
	got, _ := svc.Product(ctx, p.ID)
	if *got.QuantityAvailable != 1 {
		t.Errorf("quantity left = %d", *got.QuantityAvailable)
	}

	unlimited, _ := svc.CreateProduct(ctx, ProductInput{Name: "Badge", Price: 600})
	if _, err := svc.Purchase(ctx, "u1", unlimited.ID, PurchaseInput{Quantity: 2}); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("too expensive = %v", err)
	}
	if _, err := svc.Purchase(ctx, "u1", "nope", PurchaseInput{Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("missing product = %v", err)
	}
	list, _ := svc.Products(ctx)
	if len(list) != 2 || list[0].Name != "Badge" {
		t.Errorf("products = %v", list)
	}
}

func TestStockTrading(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	st, err := svc.CreateStock(ctx, StockInput{Name: "SQD", Quantity: 10, Price: 50})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Trade(ctx, "u1", st.ID, TradeInput{TradeType: TradeBuy, Quantity: 4})
	if err != nil {
		t.Fatal(err)
	}
	if res.Wallet.Balance("dinero") != 800 || res.Holding.Quantity != 4 || res.Stock.Quantity != 6 {
		t.Errorf("after buy = %+v %+v %+v", res.Wallet.Currencies, res.Holding, res.Stock)
	}
	if _, err := svc.Trade(ctx, "u1", st.ID, TradeInput{TradeType: TradeBuy, Quantity: 7}); !errors.Is(err, ErrStockUnavailable) {
		t.Errorf("buy too many = %v", err)
	}
	if _, err := svc.Trade(ctx, "u1", st.ID, TradeInput{TradeType: TradeSell, Quantity: 5}); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("oversell = %v", err)
	}
	if _, err := svc.Trade(ctx, "u1", st.ID, TradeInput{TradeType: "HOLD", Quantity: 1}); !errors.Is(err, ErrUnknownTradeType) {
		t.Errorf("bad trade type = %v", err)
	}

	if _, err := svc.Trade(ctx, "u1", st.ID, TradeInput{TradeType: TradeSell, Quantity: 4}); err != nil {
		t.Fatal(err)
	}
	holdings, _ := svc.UserStocks(ctx, "u1")
	if len(holdings) != 0 {
		t.Errorf("holdings after selling all = %v", holdings)
	}
	w, _ := svc.Wallet(ctx, "u1")
	if w.Balance("dinero") != 1000 {
		t.Errorf("dinero after round trip = %d", w.Balance("dinero"))
	}
}
