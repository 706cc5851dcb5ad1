package catalog

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type Store interface {
	Reader
	CreateProduct(ctx context.Context, req store.CreateProductRequest) (*models.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error
	SetSizeStock(ctx context.Context, productID int64, hex, size string, quantity int) error
	DeleteProduct(ctx context.Context, id int64) error
}

type Invalidator interface {
	Reader
	Invalidate(ctx context.Context, ids ...int64)
}

// Service is the admin-facing catalog. Every write drops the cached copy so
// cart checks see the new price or stock.
type Service struct {
	store  Store
	cache  Invalidator
	logger zerolog.Logger
}

func NewService(s Store, cache Invalidator, logger zerolog.Logger) *Service {
	return &Service{store: s, cache: cache, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Product, error) {
	return s.cache.GetProduct(ctx, id)
}

func (s *Service) List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return s.store.ListProducts(ctx, page, pageSize)
}

func (s *Service) Create(ctx context.Context, req store.CreateProductRequest) (*models.Product, error) {
	product, err := s.store.CreateProduct(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("product_id", product.ID).Str("name", product.Name).Msg("product created")
	return product, nil
}

// UpdatePrice changes the catalog price. Orders already placed keep the
// price they were placed at.
func (s *Service) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	if err := s.store.UpdateProductPrice(ctx, id, price); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info().Int64("product_id", id).Str("price", price.StringFixed(2)).Msg("product price updated")
	return nil
}

func (s *Service) SetStock(ctx context.Context, id int64, hex, size string, quantity int) error {
	if err := s.store.SetSizeStock(ctx, id, hex, size, quantity); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info().Int64("product_id", id).Str("color", hex).Str("size", size).Int("quantity", quantity).
		Msg("stock updated")
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info().Int64("product_id", id).Msg("product removed")
	return nil
}
