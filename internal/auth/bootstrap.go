package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// EnsureSuperAdmin creates the configured bootstrap account unless it
// already exists. It is safe to call on every start.
func EnsureSuperAdmin(ctx context.Context, admins AdminStore, cfg config.AuthConfig, logger zerolog.Logger) (*models.Admin, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Warn().Msg("AUTH_ADMIN_EMAIL or AUTH_ADMIN_PASSWORD not set, skipping super admin bootstrap")
		return nil, nil
	}

	existing, err := admins.GetAdminByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		if existing.Role != models.RoleSuperAdmin {
			logger.Warn().Str("email", cfg.AdminEmail).Str("role", existing.Role).
				Msg("bootstrap admin exists without super admin role")
		}
		return existing, nil
	}
	if !errors.Is(err, database.ErrAdminNotFound) {
		return nil, err
	}

	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}

	admin, err := admins.CreateAdmin(ctx, cfg.AdminEmail, cfg.AdminName, hash, models.RoleSuperAdmin, FullPermissions())
	if errors.Is(err, database.ErrEmailTaken) {
		// another instance won the race
		return admins.GetAdminByEmail(ctx, cfg.AdminEmail)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().Int64("admin_id", admin.ID).Str("email", admin.Email).Msg("super admin created")
	return admin, nil
}
