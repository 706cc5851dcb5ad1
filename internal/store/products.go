package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/cartkey"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

type CreateProductRequest struct {
	Name             string
	Description      string
	Category         string
	Price            decimal.Decimal
	PreorderEligible bool
	Colors           []models.ColorVariant
}

func (r CreateProductRequest) validate() error {
	if r.Name == "" {
		return apperr.Validation("Product name is required")
	}
	if r.Price.IsNegative() {
		return apperr.Validation("Price must not be negative")
	}
	if len(r.Colors) == 0 {
		return apperr.Validation("At least one color or size variant is required")
	}

	hexes := make(map[string]bool, len(r.Colors))
	for _, c := range r.Colors {
		if hexes[c.Hex] {
			return apperr.Validation(fmt.Sprintf("Duplicate color %q", c.Hex))
		}
		hexes[c.Hex] = true

		sizes := make(map[string]bool, len(c.Sizes))
		for _, s := range c.Sizes {
			if !cartkey.ValidSize(s.Size) {
				return apperr.Validation(fmt.Sprintf("Invalid size label %q", s.Size))
			}
			if sizes[s.Size] {
				return apperr.Validation(fmt.Sprintf("Duplicate size %q for color %q", s.Size, c.Hex))
			}
			if s.Quantity < 0 {
				return apperr.Validation("Stock quantity must not be negative")
			}
			sizes[s.Size] = true
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var product *models.Product

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var productID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO products (name, description, category, price, preorder_eligible, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
			 RETURNING id`,
			req.Name, req.Description, req.Category, req.Price, req.PreorderEligible).Scan(&productID)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		for i, color := range req.Colors {
			var colorID int64
			err := tx.QueryRowContext(ctx,
				`INSERT INTO product_colors (product_id, name, hex, images, position)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				productID, color.Name, color.Hex, pq.Array(color.Images), i).Scan(&colorID)
			if err != nil {
				return fmt.Errorf("create color %q: %w", color.Hex, err)
			}

			for j, size := range color.Sizes {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO product_sizes (color_id, size, quantity, position)
					 VALUES ($1, $2, $3, $4)`,
					colorID, size.Size, size.Quantity, j)
				if err != nil {
					return fmt.Errorf("create size %q: %w", size.Size, err)
				}
			}
		}

		product, err = GetProduct(ctx, tx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func GetProduct(ctx context.Context, q DBTX, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, description, category, price, preorder_eligible, created_at, updated_at, version
		FROM products
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.Price,
		&product.PreorderEligible,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	variants, err := loadVariants(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	product.Colors = variants[id]

	return product, nil
}

// loadVariants returns the colors and sizes of the given products keyed by
// product id, in insertion order.
func loadVariants(ctx context.Context, q DBTX, productIDs []int64) (map[int64][]models.ColorVariant, error) {
	out := make(map[int64][]models.ColorVariant, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT c.product_id, c.id, c.name, c.hex, c.images, s.size, s.quantity
		FROM product_colors c
		LEFT JOIN product_sizes s ON s.color_id = c.id
		WHERE c.product_id = ANY($1)
		ORDER BY c.product_id, c.position, c.id, s.position, s.size`

	rows, err := q.QueryContext(ctx, query, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()

	index := make(map[int64]int)
	for rows.Next() {
		var (
			productID int64
			color     models.ColorVariant
			images    []string
			size      sql.NullString
			quantity  sql.NullInt64
		)
		if err := rows.Scan(&productID, &color.ID, &color.Name, &color.Hex, pq.Array(&images), &size, &quantity); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}

		pos, ok := index[color.ID]
		if !ok {
			color.Images = images
			color.Sizes = []models.SizeStock{}
			out[productID] = append(out[productID], color)
			pos = len(out[productID]) - 1
			index[color.ID] = pos
		}

		if size.Valid {
			v := &out[productID][pos]
			v.Sizes = append(v.Sizes, models.SizeStock{Size: size.String, Quantity: int(quantity.Int64)})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, name, description, category, price, preorder_eligible, created_at, updated_at, version
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	var ids []int64
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Category,
			&product.Price,
			&product.PreorderEligible,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
		ids = append(ids, product.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	variants, err := loadVariants(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Colors = variants[products[i].ID]
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

func UpdateProductPrice(ctx context.Context, db *sql.DB, id int64, price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Validation("Price must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET price = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		price, id)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}

	return expectOneRow(result, database.ErrProductNotFound)
}

// SetSizeStock sets the absolute stock of one size of one color, creating
// the size entry when the color exists but the size does not.
func SetSizeStock(ctx context.Context, db *sql.DB, productID int64, hex, size string, quantity int) error {
	if quantity < 0 {
		return apperr.Validation("Stock quantity must not be negative")
	}
	if !cartkey.ValidSize(size) {
		return apperr.Validation(fmt.Sprintf("Invalid size label %q", size))
	}

	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		colorID, err := findColorID(ctx, tx, productID, hex)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_sizes (color_id, size, quantity, position)
			 VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM product_sizes WHERE color_id = $1))
			 ON CONFLICT (color_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`,
			colorID, size, quantity)
		if err != nil {
			return fmt.Errorf("set stock: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE products SET version = version + 1, updated_at = NOW() WHERE id = $1`, productID)
		if err != nil {
			return fmt.Errorf("touch product: %w", err)
		}
		return nil
	})
}

func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOneRow(result, database.ErrProductNotFound)
}

func findColorID(ctx context.Context, q DBTX, productID int64, hex string) (int64, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return 0, database.ErrProductNotFound
	}

	var colorID int64
	err = q.QueryRowContext(ctx,
		`SELECT id FROM product_colors WHERE product_id = $1 AND hex = $2`,
		productID, hex).Scan(&colorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrVariantNotFound
		}
		return 0, fmt.Errorf("find color: %w", err)
	}
	return colorID, nil
}

// DecrementSizeStock removes quantity units from one size entry only if at
// least that many remain.
func DecrementSizeStock(ctx context.Context, tx *sql.Tx, productID int64, hex, size string, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE product_sizes s
		 SET quantity = s.quantity - $1
		 FROM product_colors c
		 WHERE s.color_id = c.id
		   AND c.product_id = $2
		   AND c.hex = $3
		   AND s.size = $4
		   AND s.quantity >= $1`,
		quantity, productID, hex, size)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	if err := expectOneRow(result, database.ErrInsufficientStock); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET version = version + 1, updated_at = NOW() WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("touch product: %w", err)
	}
	return nil
}

// IncrementSizeStock returns quantity units to one size entry. It reports
// ErrSizeNotFound when the entry no longer exists.
func IncrementSizeStock(ctx context.Context, tx *sql.Tx, productID int64, hex, size string, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE product_sizes s
		 SET quantity = s.quantity + $1
		 FROM product_colors c
		 WHERE s.color_id = c.id
		   AND c.product_id = $2
		   AND c.hex = $3
		   AND s.size = $4`,
		quantity, productID, hex, size)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	if err := expectOneRow(result, models.ErrSizeNotFound); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET version = version + 1, updated_at = NOW() WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("touch product: %w", err)
	}
	return nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
