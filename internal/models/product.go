package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/apperr"
)

var (
	ErrVariantNotFound = apperr.NotFound("Color not found for this product")
	ErrColorRequired   = apperr.NotFound("Color is required for this product")
	ErrSizeNotFound    = apperr.NotFound("Size not found for this color")
)

type Product struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Category         string          `json:"category,omitempty"`
	Price            decimal.Decimal `json:"price"`
	PreorderEligible bool            `json:"preorder_eligible"`
	Colors           []ColorVariant  `json:"colors"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ColorVariant groups the images and per-size stock of one color. A product
// sold without a color choice carries a single variant whose Hex is empty.
type ColorVariant struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Hex    string      `json:"hex"`
	Images []string    `json:"images"`
	Sizes  []SizeStock `json:"sizes"`
}

type SizeStock struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

func (p *Product) Variant(hex string) (*ColorVariant, bool) {
	for i := range p.Colors {
		if p.Colors[i].Hex == hex {
			return &p.Colors[i], true
		}
	}
	return nil, false
}

func (c *ColorVariant) Size(label string) (*SizeStock, bool) {
	for i := range c.Sizes {
		if c.Sizes[i].Size == label {
			return &c.Sizes[i], true
		}
	}
	return nil, false
}

// Select resolves a (color, size) choice. An empty color only matches the
// uncolored variant, so products sold exclusively in colors require one.
func (p *Product) Select(color, size string) (*ColorVariant, *SizeStock, error) {
	variant, ok := p.Variant(color)
	if !ok {
		if color == "" {
			return nil, nil, ErrColorRequired
		}
		return nil, nil, ErrVariantNotFound
	}

	entry, ok := variant.Size(size)
	if !ok {
		return nil, nil, ErrSizeNotFound
	}
	return variant, entry, nil
}

// Image returns the first image of the variant, or of the product when the
// variant has none.
func (p *Product) Image(hex string) string {
	if v, ok := p.Variant(hex); ok && len(v.Images) > 0 {
		return v.Images[0]
	}
	for _, c := range p.Colors {
		if len(c.Images) > 0 {
			return c.Images[0]
		}
	}
	return ""
}
