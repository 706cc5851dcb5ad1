// Package auth issues and checks tokens for shoppers and back-office admins
// and manages admin accounts and their permissions.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	ErrWeakPassword       = apperr.Validation("Please enter a strong password")
	ErrUnknownRole        = apperr.Validation("Unknown admin role")
	ErrLastSuperAdmin     = apperr.Conflict("At least one super admin must remain")
	ErrRemoveSelf         = apperr.Validation("You cannot remove your own account")
)

type UserStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
}

type AdminStore interface {
	CreateAdmin(ctx context.Context, email, name, passwordHash, role string, permissions models.PermissionSet) (*models.Admin, error)
	GetAdmin(ctx context.Context, id int64) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	UpdateAdminPermissions(ctx context.Context, id int64, role string, permissions models.PermissionSet) error
	DeleteAdmin(ctx context.Context, id int64) error
	CountSuperAdmins(ctx context.Context) (int, error)
}

type Service struct {
	users   UserStore
	admins  AdminStore
	tokens  *TokenMaker
	presets map[string]models.PermissionSet
	logger  zerolog.Logger
}

func NewService(users UserStore, admins AdminStore, tokens *TokenMaker, presets map[string]models.PermissionSet, logger zerolog.Logger) *Service {
	return &Service{
		users:   users,
		admins:  admins,
		tokens:  tokens,
		presets: presets,
		logger:  logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a shopper account and returns a token for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, *models.User, error) {
	if len(password) < MinPasswordLength {
		return "", nil, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", nil, err
	}

	user, err := s.users.CreateUser(ctx, normalizeEmail(email), strings.TrimSpace(name), hash)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.ID, RoleUser)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")
	return token, user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := s.checkPassword(user.PasswordHash, password); err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID, RoleUser)
}

func (s *Service) AdminLogin(ctx context.Context, email, password string) (string, *models.Admin, error) {
	admin, err := s.admins.GetAdminByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrAdminNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.checkPassword(admin.PasswordHash, password); err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(admin.ID, RoleAdmin)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

func (s *Service) checkPassword(hash, password string) error {
	ok, err := CheckPassword(hash, password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// Authenticate verifies a token and returns its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	return s.tokens.Verify(token)
}

func (s *Service) Admin(ctx context.Context, id int64) (*models.Admin, error) {
	return s.admins.GetAdmin(ctx, id)
}

type CreateAdminRequest struct {
	Email       string
	Name        string
	Password    string
	Role        string
	Permissions models.PermissionSet
}

// CreateAdmin adds a back-office account. Without explicit permissions the
// role's preset is used.
func (s *Service) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*models.Admin, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	perms, err := s.resolvePermissions(req.Role, req.Permissions)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	admin, err := s.admins.CreateAdmin(ctx, normalizeEmail(req.Email), strings.TrimSpace(req.Name), hash, req.Role, perms)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("admin_id", admin.ID).Str("role", admin.Role).Msg("admin created")
	return admin, nil
}

func (s *Service) resolvePermissions(role string, explicit models.PermissionSet) (models.PermissionSet, error) {
	if role == models.RoleSuperAdmin {
		return FullPermissions(), nil
	}
	preset, ok := s.presets[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	if explicit != nil {
		return explicit, nil
	}
	return preset, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return s.admins.ListAdmins(ctx)
}

// ListUsers pages through registered shoppers for the back office.
func (s *Service) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return s.users.ListUsers(ctx, page, pageSize)
}

// SetAdminPermissions replaces an admin's role and permissions. The last
// super admin cannot be demoted.
func (s *Service) SetAdminPermissions(ctx context.Context, id int64, role string, perms models.PermissionSet) (*models.Admin, error) {
	target, err := s.admins.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolvePermissions(role, perms)
	if err != nil {
		return nil, err
	}

	if target.Role == models.RoleSuperAdmin && role != models.RoleSuperAdmin {
		if err := s.keepOneSuperAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.admins.UpdateAdminPermissions(ctx, id, role, resolved); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("admin_id", id).Str("role", role).Msg("admin permissions updated")
	return s.admins.GetAdmin(ctx, id)
}

// RemoveAdmin deletes another admin's account.
func (s *Service) RemoveAdmin(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrRemoveSelf
	}

	target, err := s.admins.GetAdmin(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == models.RoleSuperAdmin {
		if err := s.keepOneSuperAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.admins.DeleteAdmin(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("admin_id", id).Int64("removed_by", actorID).Msg("admin removed")
	return nil
}

func (s *Service) keepOneSuperAdmin(ctx context.Context) error {
	n, err := s.admins.CountSuperAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}
