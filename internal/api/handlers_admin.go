package api

import (
	"net/http"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/models"
)

type createAdminRequest struct {
	Email       string               `json:"email" validate:"required,email"`
	Name        string               `json:"name" validate:"required"`
	Password    string               `json:"password" validate:"required"`
	Role        string               `json:"role" validate:"required"`
	Permissions models.PermissionSet `json:"permissions"`
}

type adminPermissionsRequest struct {
	AdminID     int64                `json:"adminId" validate:"required,gt=0"`
	Role        string               `json:"role" validate:"required"`
	Permissions models.PermissionSet `json:"permissions"`
}

type adminIDRequest struct {
	AdminID int64 `json:"adminId" validate:"required,gt=0"`
}

func (s *Server) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	admin, err := s.auth.CreateAdmin(r.Context(), auth.CreateAdminRequest{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusCreated, envelope{"message": "Admin Created", "admin": admin})
}

func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.auth.ListAdmins(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"admins": admins})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.auth.ListUsers(r.Context(), req.Page, req.PageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"users": page})
}

func (s *Server) handleAdminPermissions(w http.ResponseWriter, r *http.Request) {
	var req adminPermissionsRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	admin, err := s.auth.SetAdminPermissions(r.Context(), req.AdminID, req.Role, req.Permissions)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, envelope{"message": "Permissions Updated", "admin": admin})
}

func (s *Server) handleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminIDRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.auth.RemoveAdmin(r.Context(), currentAdmin(r).ID, req.AdminID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, r, "Admin Removed")
}
