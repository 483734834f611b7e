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

var (
	ErrProductNotFound = apperr.NotFound("product not found")
	ErrOutOfStock      = apperr.Invalid("not enough of the product is available")
)

// ProductInput lists a product in the shop. A nil QuantityAvailable means
// unlimited stock.
type ProductInput struct {
	Name              string   `json:"name" validate:"required,max=100"`
	Emoji             string   `json:"emoji" validate:"max=16"`
	Image             string   `json:"image" validate:"omitempty,http_url"`
	Category          string   `json:"category" validate:"max=50"`
	Manufacturer      string   `json:"manufacturer" validate:"max=100"`
	Usage             []string `json:"usage" validate:"max=10,dive,max=200"`
	Price             int64    `json:"price" validate:"gt=0,lte=1000000000"`
	QuantityAvailable *int64   `json:"quantity_available" validate:"omitempty,gte=0"`
}

// PurchaseInput buys Quantity units.
type PurchaseInput struct {
	Quantity int64 `json:"quantity" validate:"gt=0,lte=10000"`
}

func loadProduct(tx *database.Tx, id string) (*models.Product, error) {
	p, err := database.Get[models.Product](tx, database.Products, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// CreateProduct adds a product to the shop.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		ID:                database.NewID(),
		Name:              in.Name,
		Emoji:             in.Emoji,
		Image:             in.Image,
		Category:          in.Category,
		Manufacturer:      in.Manufacturer,
		Usage:             in.Usage,
		Price:             in.Price,
		QuantityAvailable: in.QuantityAvailable,
		CreatedAt:         s.now().UTC(),
	}
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		return tx.Put(database.Products, p.ID, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Product loads one product.
func (s *Service) Product(ctx context.Context, id string) (*models.Product, error) {
	var p *models.Product
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		p, err = loadProduct(tx, id)
		return err
	})
	return p, err
}

// Products lists the shop ordered by name.
func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := s.store.View(ctx, func(tx *database.Tx) error {
		var err error
		out, err = database.List[models.Product](tx, database.Products, nil)
		return err
	})
	slices.SortFunc(out, func(a, b models.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, err
}

// Purchase debits price*quantity dinero and adds the product to the
// buyer's items.
func (s *Service) Purchase(ctx context.Context, userID, productID string, in PurchaseInput) (*models.Wallet, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := s.now().UTC()
	var w *models.Wallet
	err := s.store.Update(ctx, func(tx *database.Tx) error {
		p, err := loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if p.QuantityAvailable != nil && *p.QuantityAvailable < in.Quantity {
			return ErrOutOfStock
		}
		w, err = s.activeWallet(tx, userID, now)
		if err != nil {
			return err
		}
		total := p.Price * in.Quantity
		if w.Balance(models.CurrencyDinero) < total {
			return ErrInsufficientFunds
		}
		w.Add(models.CurrencyDinero, -total)
		w.AddItem(p.ID, in.Quantity)
		if err := saveWallet(tx, w, now); err != nil {
			return err
		}
		if p.QuantityAvailable != nil {
			left := *p.QuantityAvailable - in.Quantity
			p.QuantityAvailable = &left
			return tx.Put(database.Products, p.ID, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordTransfer("purchase")
	return w, nil
}
