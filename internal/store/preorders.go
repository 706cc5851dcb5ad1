package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func GetPreorder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	return getOrder(ctx, db, id, models.KindPreorder)
}

func lockPreorder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	var locked int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM orders WHERE id = $1 AND kind = $2 FOR UPDATE`,
		id, models.KindPreorder).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPreorderNotFound
		}
		return nil, fmt.Errorf("lock preorder: %w", err)
	}
	return getOrder(ctx, tx, id, models.KindPreorder)
}

// UpdatePreorderStatus moves a preorder along its lifecycle. Cancelling
// returns the reserved stock to the catalog.
func UpdatePreorderStatus(ctx context.Context, db *sql.DB, id int64, to models.PreorderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, database.ErrInvalidStatus
	}

	var preorder *models.Order

	err := database.WithRetry(ctx, db, serializableRetry, func(tx *sql.Tx) error {
		current, err := lockPreorder(ctx, tx, id)
		if err != nil {
			return err
		}

		from := models.PreorderStatus(current.Status)
		if !from.CanTransition(to) {
			return database.ErrInvalidTransition
		}

		reserved := current.StockReserved
		if to == models.PreorderCancelled && reserved {
			if err := restoreStock(ctx, tx, current.Items); err != nil {
				return err
			}
			reserved = false
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, stock_reserved = $2, version = version + 1, updated_at = NOW()
			 WHERE id = $3`,
			string(to), reserved, id)
		if err != nil {
			return fmt.Errorf("update preorder status: %w", err)
		}

		preorder, err = getOrder(ctx, tx, id, models.KindPreorder)
		return err
	})
	if err != nil {
		return nil, err
	}

	return preorder, nil
}

// DeletePreorder withdraws a preorder owned by userID. Ready and Cancelled
// preorders are kept; any other state gives its stock back and is removed.
func DeletePreorder(ctx context.Context, db *sql.DB, id, userID int64) error {
	return database.WithRetry(ctx, db, serializableRetry, func(tx *sql.Tx) error {
		current, err := lockPreorder(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return database.ErrPreorderNotFound
		}

		if !models.PreorderStatus(current.Status).Deletable() {
			return database.ErrPreorderLocked
		}

		if current.StockReserved {
			if err := restoreStock(ctx, tx, current.Items); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete preorder: %w", err)
		}
		return nil
	})
}
