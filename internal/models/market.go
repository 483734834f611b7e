// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// Bid is one offer on an auction, paid in dinero.
type Bid struct {
	Bidder string    `json:"bidder"`
	Amount int64     `json:"amount"`
	Time   time.Time `json:"time"`
}

// Auction sells Quantity units of ItemType held in escrow from Seller.
type Auction struct {
	ID            string     `json:"id"`
	Seller        string     `json:"seller"`
	ItemType      string     `json:"item_type"`
	Quantity      int64      `json:"quantity"`
	InitialPrice  int64      `json:"initial_price"`
	HighestBid    int64      `json:"highest_bid"`
	HighestBidder string     `json:"highest_bidder,omitempty"`
	Bids          []Bid      `json:"bids"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Settled       bool       `json:"settled"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

// IsOpen reports whether bids are accepted at now.
func (a *Auction) IsOpen(now time.Time) bool {
	return !a.Settled && now.Before(a.EndTime)
}

// MinimumBid is the smallest amount the next bid must exceed or match.
// With no bids it is the initial price; afterwards a bid must be strictly
// greater than the highest one, so the minimum is HighestBid+1.
func (a *Auction) MinimumBid() int64 {
	if a.HighestBidder == "" {
		return a.InitialPrice
	}
	return a.HighestBid + 1
}

// Product is an item sold for dinero. A nil QuantityAvailable means the
// stock is unlimited.
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Emoji             string    `json:"emoji,omitempty"`
	Image             string    `json:"image,omitempty"`
	Category          string    `json:"category,omitempty"`
	Manufacturer      string    `json:"manufacturer,omitempty"`
	Usage             []string  `json:"usage,omitempty"`
	Price             int64     `json:"price"`
	QuantityAvailable *int64    `json:"quantity_available,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Stock is a tradable share listing priced in dinero.
type Stock struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStock is a user's holding of one stock, keyed by user and stock.
type UserStock struct {
	UserID    string    `json:"user_id"`
	StockID   string    `json:"stock_id"`
	StockName string    `json:"stock_name"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key is the document ID for the holding.
func (s UserStock) Key() string {
	return s.UserID + ":" + s.StockID
}
