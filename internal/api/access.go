package api

import (
	"context"
	"net/http"

	"github.com/safar/go-storefront/internal/api/middleware"
	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/models"
)

type adminKey struct{}

var (
	errNotAuthorized = apperr.Unauthorized("Not Authorized Login Again")
	errForbidden     = apperr.Forbidden("You do not have permission for this action")
)

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFrom(r.Context())
		if claims == nil || claims.Role != auth.RoleUser {
			respondError(w, r, errNotAuthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin loads the calling admin and checks one permission. The
// loaded account is kept in the context for handlers.
func (s *Server) requireAdmin(domain, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := middleware.ClaimsFrom(r.Context())
			if claims == nil || claims.Role != auth.RoleAdmin {
				respondError(w, r, errNotAuthorized)
				return
			}

			id, err := claims.SubjectID()
			if err != nil {
				respondError(w, r, errNotAuthorized)
				return
			}

			admin, err := s.auth.Admin(r.Context(), id)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					err = errNotAuthorized
				}
				respondError(w, r, err)
				return
			}

			if !admin.Can(domain, action) {
				respondError(w, r, errForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), adminKey{}, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUserID is only valid behind requireUser.
func currentUserID(r *http.Request) int64 {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		return 0
	}
	id, _ := claims.SubjectID()
	return id
}

func currentAdmin(r *http.Request) *models.Admin {
	admin, _ := r.Context().Value(adminKey{}).(*models.Admin)
	return admin
}

// checkBodyUser rejects bodies that name a user other than the caller.
func checkBodyUser(r *http.Request, bodyUserID int64) error {
	if bodyUserID != 0 && bodyUserID != currentUserID(r) {
		return apperr.Forbidden("You can only act on your own account")
	}
	return nil
}
