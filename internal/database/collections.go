// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package database

// Collection names.
const (
	Users         = "users"
	UserStatus    = "user_status"
	Tasks         = "tasks"
	Requests      = "requests"
	Logs          = "logs"
	Wallets       = "wallets"
	Auctions      = "auctions"
	Products      = "products"
	Stocks        = "stocks"
	UserStocks    = "user_stocks"
	ExchangeRates = "exchange_rates"
	ShortURLs     = "short_urls"
	Recruiters    = "recruiters"
	Challenges    = "challenges"
)

// Unique index fields.
const (
	IndexUsername = "username"
	IndexGithubID = "github_id"
	IndexURL      = "url"
)
