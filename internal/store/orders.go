package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

type PlaceOrderRequest struct {
	UserID            int64
	Kind              models.OrderKind
	Items             []models.LineItem
	Address           models.Address
	PaymentMethod     models.PaymentMethod
	Status            string
	DeliveryFee       decimal.Decimal
	EstimatedDelivery *time.Time

	// DecrementStock is false for card orders, whose stock is reconciled
	// once the gateway reports the session paid.
	DecrementStock          bool
	RequirePreorderEligible bool
}

func (r PlaceOrderRequest) validate() error {
	if len(r.Items) == 0 {
		return apperr.Validation("No items to order")
	}
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return apperr.Validation("Quantity must be at least 1")
		}
		if item.Size == "" {
			return apperr.Validation("Size is required")
		}
	}
	if r.Status == "" {
		return apperr.Validation("Status is required")
	}
	return nil
}

var serializableRetry = database.TxOptions{
	IsolationLevel: sql.LevelSerializable,
	MaxRetries:     3,
}

func generateOrderNumber(kind models.OrderKind) string {
	prefix := "ORD"
	if kind == models.KindPreorder {
		prefix = "PRE"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), suffix)
}

// PlaceOrder reconciles every requested line against current stock and
// persists the order in one serializable transaction. Lines are processed in
// request order and the first failure rolls back every earlier decrement.
func PlaceOrder(ctx context.Context, db *sql.DB, req PlaceOrderRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, serializableRetry, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		lines := make([]models.OrderItem, 0, len(req.Items))
		total := decimal.Zero
		for _, item := range req.Items {
			line, err := reconcileLine(ctx, tx, item, req.DecrementStock, req.RequirePreorderEligible)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			total = total.Add(line.Subtotal)
		}

		address, err := json.Marshal(req.Address)
		if err != nil {
			return fmt.Errorf("encode address: %w", err)
		}

		var orderID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_number, user_id, kind, status, payment_method, payment, stock_reserved,
			                     amount, delivery_fee, address, estimated_delivery, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
			 RETURNING id`,
			generateOrderNumber(req.Kind), req.UserID, req.Kind, req.Status, req.PaymentMethod,
			req.DecrementStock, total.Add(req.DeliveryFee), req.DeliveryFee, string(address), req.EstimatedDelivery,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i, line := range lines {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, name, unit_price, size, color, quantity, image, subtotal, position, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
				orderID, line.ProductID, line.Name, line.UnitPrice, line.Size, line.Color,
				line.Quantity, line.Image, line.Subtotal, i)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		order, err = getOrder(ctx, tx, orderID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// reconcileLine validates one requested line against the live catalog and
// returns its snapshot. The size row stays locked until the transaction ends.
func reconcileLine(ctx context.Context, tx *sql.Tx, item models.LineItem, decrement, requireEligible bool) (models.OrderItem, error) {
	product, err := GetProduct(ctx, tx, item.ProductID)
	if err != nil {
		return models.OrderItem{}, err
	}

	if requireEligible && !product.PreorderEligible {
		return models.OrderItem{}, database.ErrNotPreorderEligible
	}

	variant, _, err := product.Select(item.Color, item.Size)
	if err != nil {
		return models.OrderItem{}, err
	}

	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM product_sizes WHERE color_id = $1 AND size = $2 FOR UPDATE`,
		variant.ID, item.Size).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OrderItem{}, models.ErrSizeNotFound
		}
		return models.OrderItem{}, fmt.Errorf("lock size %q: %w", item.Size, err)
	}

	if available < item.Quantity {
		return models.OrderItem{}, &database.StockError{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      item.Size,
			Color:     item.Color,
			Requested: item.Quantity,
			Available: available,
		}
	}

	if decrement {
		if err := DecrementSizeStock(ctx, tx, product.ID, variant.Hex, item.Size, item.Quantity); err != nil {
			return models.OrderItem{}, err
		}
	}

	return models.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Size:      item.Size,
		Color:     variant.Hex,
		Quantity:  item.Quantity,
		Image:     product.Image(variant.Hex),
		Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}, nil
}

// ConfirmCardPayment reconciles stock for a stored card order and marks it
// paid in the same transaction. Calling it again on a paid order is a no-op.
func ConfirmCardPayment(ctx context.Context, db *sql.DB, orderID int64) (*models.Order, error) {
	order, _, err := settlePayment(ctx, db, orderID)
	return order, err
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	return getOrder(ctx, db, id, "")
}

const orderColumns = `id, order_number, user_id, kind, status, payment_method, payment, stock_reserved,
	amount, delivery_fee, address, estimated_delivery, payment_session_id, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var (
		address   []byte
		estimated sql.NullTime
	)

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Kind,
		&order.Status,
		&order.PaymentMethod,
		&order.Payment,
		&order.StockReserved,
		&order.Amount,
		&order.DeliveryFee,
		&address,
		&estimated,
		&order.PaymentSessionID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(address, &order.Address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if estimated.Valid {
		t := estimated.Time
		order.EstimatedDelivery = &t
	}
	return order, nil
}

// getOrder loads an order with its items. A non-empty kind restricts the
// lookup to that kind.
func getOrder(ctx context.Context, q DBTX, id int64, kind models.OrderKind) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND ($2 = '' OR kind = $2)`

	order, err := scanOrder(q.QueryRowContext(ctx, query, id, string(kind)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if kind == models.KindPreorder {
				return nil, database.ErrPreorderNotFound
			}
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := loadOrderItems(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	return order, nil
}

func lockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	var locked int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return getOrder(ctx, tx, id, "")
}

func loadOrderItems(ctx context.Context, q DBTX, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	out := make(map[int64][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	itemsQuery := `
		SELECT id, order_id, product_id, name, unit_price, size, color, quantity, image, subtotal, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position, id`

	rows, err := q.QueryContext(ctx, itemsQuery, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Size,
			&item.Color,
			&item.Quantity,
			&item.Image,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

func collectOrders(ctx context.Context, q DBTX, rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	items, err := loadOrderItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}

	return orders, nil
}

// ListOrders pages through every order of one kind, newest first.
func ListOrders(ctx context.Context, db *sql.DB, kind models.OrderKind, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE kind = $1`, kind).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE kind = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		kind, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := collectOrders(ctx, db, rows)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}

// ListUserOrders returns all orders of one kind placed by userID, newest first.
func ListUserOrders(ctx context.Context, db *sql.DB, userID int64, kind models.OrderKind) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at DESC, id DESC`,
		userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}

	return collectOrders(ctx, db, rows)
}

func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, kind models.OrderKind, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Invalid cursor", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		   AND kind = $2
		   AND (created_at, id) < ($3, $4)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $5`,
		userID, kind, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := collectOrders(ctx, db, rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus sets any listed status on a regular order.
// UpdateOrderStatus sets a regular order's status. Any listed status may
// follow any other, except that cancelling goes through CancelOrder so held
// stock is returned, and a cancelled order stays cancelled.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	if !models.ValidOrderStatus(status) {
		return database.ErrInvalidStatus
	}
	if status == models.OrderStatusCancelled {
		return CancelOrder(ctx, db, id)
	}

	return database.WithRetry(ctx, db, serializableRetry, func(tx *sql.Tx) error {
		current, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Kind != models.KindOrder {
			return database.ErrOrderNotFound
		}
		if current.Status == models.OrderStatusCancelled {
			return database.ErrOrderCancelled
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, version = version + 1, updated_at = NOW()
			 WHERE id = $2`,
			status, id)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

// MarkOrderPaid records a payment taken outside the card flow. An order
// whose stock was never taken, such as a card order abandoned before
// verification, is reconciled first; reconciled reports that this happened.
func MarkOrderPaid(ctx context.Context, db *sql.DB, id int64) (order *models.Order, reconciled bool, err error) {
	return settlePayment(ctx, db, id)
}

// settlePayment sets the payment flag under the order lock, taking stock
// for the items when the order does not hold it yet. Cancelled orders are
// rejected.
func settlePayment(ctx context.Context, db *sql.DB, id int64) (*models.Order, bool, error) {
	var (
		order      *models.Order
		reconciled bool
	)

	err := database.WithRetry(ctx, db, serializableRetry, func(tx *sql.Tx) error {
		reconciled = false

		current, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Kind != models.KindOrder {
			return database.ErrOrderNotFound
		}
		if current.Status == models.OrderStatusCancelled {
			return database.ErrOrderCancelled
		}

		if !current.StockReserved {
			for _, item := range current.Items {
				line := models.LineItem{ProductID: item.ProductID, Size: item.Size, Color: item.Color, Quantity: item.Quantity}
				if _, err := reconcileLine(ctx, tx, line, true, false); err != nil {
					return err
				}
			}
			reconciled = true
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET payment = TRUE, stock_reserved = TRUE, version = version + 1, updated_at = NOW()
			 WHERE id = $1`,
			id)
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}

		order, err = getOrder(ctx, tx, id, "")
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return order, reconciled, nil
}

// CancelOrder marks an unpaid order cancelled. Stock held by the order is
// returned to the catalog.
func CancelOrder(ctx context.Context, db *sql.DB, id int64) error {
	return database.WithRetry(ctx, db, serializableRetry, func(tx *sql.Tx) error {
		order, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Kind != models.KindOrder {
			return database.ErrOrderNotFound
		}
		if order.Status == models.OrderStatusCancelled {
			return nil
		}
		if order.Payment {
			return apperr.Conflict("Paid orders cannot be cancelled")
		}

		if order.StockReserved {
			if err := restoreStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, stock_reserved = FALSE, version = version + 1, updated_at = NOW()
			 WHERE id = $2`,
			models.OrderStatusCancelled, id)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		return nil
	})
}

func SetPaymentSession(ctx context.Context, db *sql.DB, id int64, sessionID string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET payment_session_id = $1, updated_at = NOW()
		 WHERE id = $2`,
		sessionID, id)
	if err != nil {
		return fmt.Errorf("set payment session: %w", err)
	}

	return expectOneRow(result, database.ErrOrderNotFound)
}

// restoreStock returns item quantities to their size entries. Entries that
// were removed from the catalog since the order was placed are skipped.
func restoreStock(ctx context.Context, tx *sql.Tx, items []models.OrderItem) error {
	for _, item := range items {
		err := IncrementSizeStock(ctx, tx, item.ProductID, item.Color, item.Size, item.Quantity)
		if err != nil && !errors.Is(err, models.ErrSizeNotFound) {
			return err
		}
	}
	return nil
}
