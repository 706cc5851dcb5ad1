package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

const adminColumns = `id, email, name, password_hash, role, permissions, created_at, updated_at`

func scanAdmin(row rowScanner) (*models.Admin, error) {
	admin := &models.Admin{}
	var permissions []byte
	err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.Name,
		&admin.PasswordHash,
		&admin.Role,
		&permissions,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	admin.Permissions = models.PermissionSet{}
	if err := json.Unmarshal(permissions, &admin.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return admin, nil
}

func encodePermissions(set models.PermissionSet) (string, error) {
	if set == nil {
		set = models.PermissionSet{}
	}
	data, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(data), nil
}

func CreateAdmin(ctx context.Context, db *sql.DB, email, name, passwordHash, role string, permissions models.PermissionSet) (*models.Admin, error) {
	encoded, err := encodePermissions(permissions)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO admins (email, name, password_hash, role, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + adminColumns

	admin, err := scanAdmin(db.QueryRowContext(ctx, query, email, name, passwordHash, role, encoded))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}

	return admin, nil
}

func GetAdmin(ctx context.Context, db *sql.DB, id int64) (*models.Admin, error) {
	admin, err := scanAdmin(db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return admin, nil
}

func GetAdminByEmail(ctx context.Context, db *sql.DB, email string) (*models.Admin, error) {
	admin, err := scanAdmin(db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return admin, nil
}

func ListAdmins(ctx context.Context, db *sql.DB) ([]models.Admin, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	admins := []models.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, *admin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return admins, nil
}

func UpdateAdminPermissions(ctx context.Context, db *sql.DB, id int64, role string, permissions models.PermissionSet) error {
	encoded, err := encodePermissions(permissions)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE admins SET role = $1, permissions = $2, updated_at = NOW() WHERE id = $3`,
		role, encoded, id)
	if err != nil {
		return fmt.Errorf("update admin permissions: %w", err)
	}
	return expectOneRow(result, database.ErrAdminNotFound)
}

func DeleteAdmin(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	return expectOneRow(result, database.ErrAdminNotFound)
}

// CountSuperAdmins is used to keep at least one account able to manage admins.
func CountSuperAdmins(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins WHERE role = $1`, models.RoleSuperAdmin).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count super admins: %w", err)
	}
	return n, nil
}
