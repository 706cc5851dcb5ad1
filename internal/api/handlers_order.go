package api

import (
	"net/http"
	"strconv"

	"github.com/safar/go-storefront/internal/models"
)

// placeOrderRequest carries the client's amount for compatibility only; the
// charged amount is always computed from current prices.
type placeOrderRequest struct {
	Items   []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	Amount  float64           `json:"amount"`
	Address addressRequest    `json:"address"`
}

type verifyCardRequest struct {
	OrderID int64    `json:"orderId" validate:"required,gt=0"`
	Success flexBool `json:"success"`
	UserID  int64    `json:"userId"`
}

type orderIDRequest struct {
	OrderID int64 `json:"orderId" validate:"required,gt=0"`
}

type orderStatusRequest struct {
	OrderID int64  `json:"orderId" validate:"required,gt=0"`
	Status  string `json:"status" validate:"required"`
}

type pageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := s.checkout.PlaceCOD(r.Context(), currentUserID(r), toLineItems(req.Items), req.Address.toModel())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusCreated, envelope{"message": "Order Placed", "order": order})
}

func (s *Server) handlePlaceCardOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.checkout.PlaceCard(r.Context(), currentUserID(r), toLineItems(req.Items),
		req.Address.toModel(), r.Header.Get("Origin"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusCreated, envelope{
		"session_url": result.SessionURL,
		"order":       result.Order,
	})
}

func (s *Server) handleVerifyCard(w http.ResponseWriter, r *http.Request) {
	var req verifyCardRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := checkBodyUser(r, req.UserID); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := s.checkout.VerifyCard(r.Context(), currentUserID(r), req.OrderID, bool(req.Success))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if !order.Payment {
		respondJSON(w, r, http.StatusOK, envelope{
			"success": false,
			"message": "Payment was not completed, order cancelled",
			"order":   order,
		})
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"message": "Payment Successful", "order": order})
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.checkout.UserOrders(r.Context(), currentUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"orders": orders})
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	page, err := s.checkout.OrderHistory(r.Context(), currentUserID(r),
		models.OrderKind(q.Get("kind")), q.Get("cursor"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"orders": page})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.checkout.ListOrders(r.Context(), req.Page, req.PageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"orders": page})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.checkout.UpdateStatus(r.Context(), req.OrderID, req.Status); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Status Updated")
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req orderIDRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.checkout.ConfirmPayment(r.Context(), req.OrderID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Payment Confirmed")
}
