package api

import (
	"net/http"
)

type cartAddRequest struct {
	ProductID int64  `json:"itemId" validate:"required,gt=0"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color"`
}

type cartUpdateRequest struct {
	ProductID int64  `json:"itemId" validate:"required,gt=0"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

func (s *Server) handleCartAdd(cart CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cartAddRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		if err := cart.AddItem(r.Context(), currentUserID(r), req.ProductID, req.Size, req.Color); err != nil {
			respondError(w, r, err)
			return
		}

		respondMessage(w, r, "Added To Cart")
	}
}

func (s *Server) handleCartUpdate(cart CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cartUpdateRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		err := cart.UpdateItem(r.Context(), currentUserID(r), req.ProductID, req.Size, req.Color, req.Quantity)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondMessage(w, r, "Cart Updated")
	}
}

func (s *Server) handleCartGet(cart CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := cart.GetCart(r.Context(), currentUserID(r))
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, envelope{"cartData": data})
	}
}
