package store

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/models"
)

// Postgres exposes the package functions as methods over one pool so
// services can depend on narrow interfaces.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	return CreateProduct(ctx, p.db, req)
}

func (p *Postgres) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return GetProduct(ctx, p.db, id)
}

func (p *Postgres) ListProducts(ctx context.Context, page, pageSize int) (*OffsetPage, error) {
	return ListProducts(ctx, p.db, page, pageSize)
}

func (p *Postgres) UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	return UpdateProductPrice(ctx, p.db, id, price)
}

func (p *Postgres) SetSizeStock(ctx context.Context, productID int64, hex, size string, quantity int) error {
	return SetSizeStock(ctx, p.db, productID, hex, size, quantity)
}

func (p *Postgres) DeleteProduct(ctx context.Context, id int64) error {
	return DeleteProduct(ctx, p.db, id)
}

func (p *Postgres) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	return PlaceOrder(ctx, p.db, req)
}

func (p *Postgres) ConfirmCardPayment(ctx context.Context, orderID int64) (*models.Order, error) {
	return ConfirmCardPayment(ctx, p.db, orderID)
}

func (p *Postgres) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return GetOrder(ctx, p.db, id)
}

func (p *Postgres) ListOrders(ctx context.Context, kind models.OrderKind, page, pageSize int) (*OffsetPage, error) {
	return ListOrders(ctx, p.db, kind, page, pageSize)
}

func (p *Postgres) ListUserOrders(ctx context.Context, userID int64, kind models.OrderKind) ([]models.Order, error) {
	return ListUserOrders(ctx, p.db, userID, kind)
}

func (p *Postgres) ListOrdersCursor(ctx context.Context, userID int64, kind models.OrderKind, cursor string, limit int) (*CursorPage, error) {
	return ListOrdersCursor(ctx, p.db, userID, kind, cursor, limit)
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	return UpdateOrderStatus(ctx, p.db, id, status)
}

func (p *Postgres) MarkOrderPaid(ctx context.Context, id int64) (*models.Order, bool, error) {
	return MarkOrderPaid(ctx, p.db, id)
}

func (p *Postgres) CancelOrder(ctx context.Context, id int64) error {
	return CancelOrder(ctx, p.db, id)
}

func (p *Postgres) SetPaymentSession(ctx context.Context, id int64, sessionID string) error {
	return SetPaymentSession(ctx, p.db, id, sessionID)
}

func (p *Postgres) GetPreorder(ctx context.Context, id int64) (*models.Order, error) {
	return GetPreorder(ctx, p.db, id)
}

func (p *Postgres) UpdatePreorderStatus(ctx context.Context, id int64, status models.PreorderStatus) (*models.Order, error) {
	return UpdatePreorderStatus(ctx, p.db, id, status)
}

func (p *Postgres) DeletePreorder(ctx context.Context, id, userID int64) error {
	return DeletePreorder(ctx, p.db, id, userID)
}

func (p *Postgres) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	return CreateUser(ctx, p.db, email, name, passwordHash)
}

func (p *Postgres) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return GetUser(ctx, p.db, id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return GetUserByEmail(ctx, p.db, email)
}

func (p *Postgres) ListUsers(ctx context.Context, page, pageSize int) (*OffsetPage, error) {
	return ListUsers(ctx, p.db, page, pageSize)
}

func (p *Postgres) CreateAdmin(ctx context.Context, email, name, passwordHash, role string, permissions models.PermissionSet) (*models.Admin, error) {
	return CreateAdmin(ctx, p.db, email, name, passwordHash, role, permissions)
}

func (p *Postgres) GetAdmin(ctx context.Context, id int64) (*models.Admin, error) {
	return GetAdmin(ctx, p.db, id)
}

func (p *Postgres) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return GetAdminByEmail(ctx, p.db, email)
}

func (p *Postgres) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return ListAdmins(ctx, p.db)
}

func (p *Postgres) UpdateAdminPermissions(ctx context.Context, id int64, role string, permissions models.PermissionSet) error {
	return UpdateAdminPermissions(ctx, p.db, id, role, permissions)
}

func (p *Postgres) DeleteAdmin(ctx context.Context, id int64) error {
	return DeleteAdmin(ctx, p.db, id)
}

func (p *Postgres) CountSuperAdmins(ctx context.Context) (int, error) {
	return CountSuperAdmins(ctx, p.db)
}
