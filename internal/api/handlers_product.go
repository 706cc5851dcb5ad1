package api

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type productIDRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

type sizeRequest struct {
	Size     string `json:"size" validate:"required,excludes=-"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type colorRequest struct {
	Name   string        `json:"name"`
	Hex    string        `json:"hex"`
	Images []string      `json:"images"`
	Sizes  []sizeRequest `json:"sizes" validate:"required,min=1,dive"`
}

type addProductRequest struct {
	Name             string          `json:"name" validate:"required"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Price            decimal.Decimal `json:"price"`
	PreorderEligible bool            `json:"preorderEligible"`
	Colors           []colorRequest  `json:"colors" validate:"required,min=1,dive"`
}

func (req addProductRequest) toStore() store.CreateProductRequest {
	colors := make([]models.ColorVariant, 0, len(req.Colors))
	for _, c := range req.Colors {
		sizes := make([]models.SizeStock, 0, len(c.Sizes))
		for _, sz := range c.Sizes {
			sizes = append(sizes, models.SizeStock{Size: sz.Size, Quantity: sz.Quantity})
		}
		colors = append(colors, models.ColorVariant{
			Name:   c.Name,
			Hex:    c.Hex,
			Images: c.Images,
			Sizes:  sizes,
		})
	}

	return store.CreateProductRequest{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Price:            req.Price,
		PreorderEligible: req.PreorderEligible,
		Colors:           colors,
	}
}

type priceRequest struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
}

type stockRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Color     string `json:"color"`
	Size      string `json:"size" validate:"required,excludes=-"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := s.catalog.List(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"products": result})
}

func (s *Server) handleSingleProduct(w http.ResponseWriter, r *http.Request) {
	var req productIDRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := s.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"product": product})
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := s.catalog.Create(r.Context(), req.toStore())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusCreated, envelope{"message": "Product Added", "product": product})
}

func (s *Server) handleProductPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.catalog.UpdatePrice(r.Context(), req.ProductID, req.Price); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Price Updated")
}

func (s *Server) handleProductStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.catalog.SetStock(r.Context(), req.ProductID, req.Color, req.Size, req.Quantity); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Stock Updated")
}

func (s *Server) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	var req productIDRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.catalog.Delete(r.Context(), req.ProductID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Product Removed")
}
