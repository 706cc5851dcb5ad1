// Package cart keeps per-user carts of (product, size, color) quantities.
// The regular cart and the preorder cart are two Service values over the
// same store, differing only in their kind.
package cart

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/cartkey"
	"github.com/safar/go-storefront/internal/catalog"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

type Store interface {
	Increment(ctx context.Context, kind models.CartKind, userID, productID int64, compositeKey string, delta int) (int, error)
	Set(ctx context.Context, kind models.CartKind, userID, productID int64, compositeKey string, quantity int) error
	Get(ctx context.Context, kind models.CartKind, userID int64) (models.Cart, error)
	Clear(ctx context.Context, kind models.CartKind, userID int64) error
}

type Service struct {
	kind     models.CartKind
	store    Store
	products catalog.Reader
	logger   zerolog.Logger
}

func NewService(kind models.CartKind, store Store, products catalog.Reader, logger zerolog.Logger) *Service {
	return &Service{
		kind:     kind,
		store:    store,
		products: products,
		logger:   logger.With().Str("cart", string(kind)).Logger(),
	}
}

func (s *Service) Kind() models.CartKind {
	return s.kind
}

func checkSize(size string) error {
	if size == "" {
		return apperr.Validation("Please select a size")
	}
	if !cartkey.ValidSize(size) {
		return apperr.Validation("Invalid size")
	}
	return nil
}

// AddItem puts one more unit of the selection in the cart. The selection
// must exist and have stock left.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, size, color string) error {
	if err := checkSize(size); err != nil {
		return err
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	if s.kind == models.CartPreorder && !product.PreorderEligible {
		return database.ErrNotPreorderEligible
	}

	_, entry, err := product.Select(color, size)
	if err != nil {
		return err
	}
	if entry.Quantity <= 0 {
		return database.ErrOutOfStock
	}

	n, err := s.store.Increment(ctx, s.kind, userID, productID, cartkey.Encode(size, color), 1)
	if err != nil {
		return err
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Int64("product_id", productID).
		Str("size", size).
		Str("color", color).
		Int("quantity", n).
		Msg("cart item added")
	return nil
}

// UpdateItem sets an absolute quantity. Zero removes the entry, and the
// product disappears from the cart with its last entry.
func (s *Service) UpdateItem(ctx context.Context, userID, productID int64, size, color string, quantity int) error {
	if err := checkSize(size); err != nil {
		return err
	}
	if quantity < 0 {
		return apperr.Validation("Quantity must not be negative")
	}

	if quantity > 0 {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		_, entry, err := product.Select(color, size)
		if err != nil {
			return err
		}
		if quantity > entry.Quantity {
			return &database.StockError{
				ProductID: productID,
				Name:      product.Name,
				Size:      size,
				Color:     color,
				Requested: quantity,
				Available: entry.Quantity,
			}
		}
	}

	return s.store.Set(ctx, s.kind, userID, productID, cartkey.Encode(size, color), quantity)
}

func (s *Service) GetCart(ctx context.Context, userID int64) (models.Cart, error) {
	return s.store.Get(ctx, s.kind, userID)
}

func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	return s.store.Clear(ctx, s.kind, userID)
}
