package api

import (
	"net/http"
)

type createPreorderRequest struct {
	UserID  int64             `json:"userId"`
	Items   []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	Address addressRequest    `json:"address"`
}

type preorderIDRequest struct {
	PreorderID int64 `json:"preorderId" validate:"required,gt=0"`
}

type preorderStatusRequest struct {
	PreorderID int64  `json:"preorderId" validate:"required,gt=0"`
	Status     string `json:"status" validate:"required"`
}

func (s *Server) handleCreatePreorder(w http.ResponseWriter, r *http.Request) {
	var req createPreorderRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := checkBodyUser(r, req.UserID); err != nil {
		respondError(w, r, err)
		return
	}

	preorder, err := s.checkout.CreatePreorder(r.Context(), currentUserID(r), toLineItems(req.Items), req.Address.toModel())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusCreated, envelope{"message": "Preorder Placed", "preorder": preorder})
}

func (s *Server) handleUserPreorders(w http.ResponseWriter, r *http.Request) {
	preorders, err := s.checkout.UserPreorders(r.Context(), currentUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"preorders": preorders})
}

func (s *Server) handleDeletePreorder(w http.ResponseWriter, r *http.Request) {
	var req preorderIDRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.checkout.DeletePreorder(r.Context(), currentUserID(r), req.PreorderID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Preorder Deleted")
}

func (s *Server) handleListPreorders(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.checkout.ListPreorders(r.Context(), req.Page, req.PageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"preorders": page})
}

func (s *Server) handlePreorderStatus(w http.ResponseWriter, r *http.Request) {
	var req preorderStatusRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	preorder, err := s.checkout.UpdatePreorderStatus(r.Context(), req.PreorderID, req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"message": "Status Updated", "preorder": preorder})
}
