// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package models

import "time"

// Wallet currencies.
const (
	CurrencyDinero = "dinero"
	CurrencyNeelam = "neelam"
)

// Wallet holds a user's toy currency balances and items. Item keys are item
// types, e.g. "neelam" held in escrow by an auction moves out of Currencies.
type Wallet struct {
	UserID     string           `json:"user_id"`
	Currencies map[string]int64 `json:"currencies"`
	Items      map[string]int64 `json:"items"`
	IsActive   bool             `json:"is_active"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Balance returns the amount held of currency, zero when absent.
func (w *Wallet) Balance(currency string) int64 {
	return w.Currencies[currency]
}

// Add changes the balance of currency by delta. Callers check for
// sufficient funds before passing a negative delta.
func (w *Wallet) Add(currency string, delta int64) {
	if w.Currencies == nil {
		w.Currencies = make(map[string]int64)
	}
	w.Currencies[currency] += delta
}

// AddItem changes the held quantity of an item type by delta, dropping the
// key when it reaches zero.
func (w *Wallet) AddItem(item string, delta int64) {
	if w.Items == nil {
		w.Items = make(map[string]int64)
	}
	w.Items[item] += delta
	if w.Items[item] == 0 {
		delete(w.Items, item)
	}
}

// ExchangeRate converts one unit of From into Rate units of To.
type ExchangeRate struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key is the document ID for the rate.
func (r ExchangeRate) Key() string {
	return r.From + ":" + r.To
}
