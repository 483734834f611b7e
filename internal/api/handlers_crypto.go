// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/squadapi/internal/crypto"
)

// Wallet handles GET /wallet.
func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.crypto.Wallet(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Wallet returned successfully", wallet)
}

// UserWallet handles GET /wallet/{username}.
func (h *Handler) UserWallet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.crypto.Wallet(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Wallet returned successfully", wallet)
}

// ExchangeRates handles GET /exchange/rates.
func (h *Handler) ExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.crypto.Rates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Exchange rates returned successfully", rates)
}

type ratesInput struct {
	Rates []crypto.RateInput `json:"rates" validate:"required,min=1,max=50,dive"`
}

// SetExchangeRates handles PUT /exchange/rates.
func (h *Handler) SetExchangeRates(w http.ResponseWriter, r *http.Request) {
	var in ratesInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	rates, err := h.crypto.SetRates(r.Context(), currentUser(r).ID, in.Rates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Exchange rates updated successfully", rates)
}

// Exchange handles POST /exchange.
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	var in crypto.ExchangeInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.crypto.Exchange(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Currency exchanged successfully", wallet)
}

// ListAuctions handles GET /auctions?active=&seller=.
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r, h.cfg.API)
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := boolQuery(r, "active")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := h.crypto.Auctions(r.Context(), crypto.AuctionFilter{
		Active: active,
		Seller: r.URL.Query().Get("seller"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination("Auctions returned successfully", list, p, len(list), total)
}

// GetAuction handles GET /auctions/{id}.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := h.crypto.Auction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Auction returned successfully", auction)
}

// CreateAuction handles POST /auctions.
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var in crypto.AuctionInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	auction, err := h.crypto.CreateAuction(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Auction created successfully", auction)
}

// Bid handles POST /auctions/{id}/bids.
func (h *Handler) Bid(w http.ResponseWriter, r *http.Request) {
	var in crypto.BidInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	auction, err := h.crypto.Bid(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Bid placed successfully", auction)
}

// ListProducts handles GET /crypto/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.crypto.Products(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Products returned successfully", list)
}

// GetProduct handles GET /crypto/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.crypto.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Product returned successfully", product)
}

// CreateProduct handles POST /crypto/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in crypto.ProductInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.crypto.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Product created successfully", product)
}

// Purchase handles POST /crypto/products/{id}/purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var in crypto.PurchaseInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.crypto.Purchase(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Product purchased successfully", wallet)
}

// ListStocks handles GET /stocks.
func (h *Handler) ListStocks(w http.ResponseWriter, r *http.Request) {
	list, err := h.crypto.Stocks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Stocks returned successfully", list)
}

// CreateStock handles POST /stocks.
func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var in crypto.StockInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	stock, err := h.crypto.CreateStock(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created("Stock created successfully", stock)
}

// SelfStocks handles GET /stocks/user/self.
func (h *Handler) SelfStocks(w http.ResponseWriter, r *http.Request) {
	list, err := h.crypto.UserStocks(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("User stocks returned successfully", list)
}

// TradeStock handles POST /trade/stock/{id}.
func (h *Handler) TradeStock(w http.ResponseWriter, r *http.Request) {
	var in crypto.TradeInput
	if err := decodeAndValidate(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.crypto.Trade(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success("Trade completed successfully", result)
}
