package api

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type MockAuth struct {
	mock.Mock
}

func (m *MockAuth) Authenticate(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *MockAuth) Register(ctx context.Context, name, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuth) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuth) AdminLogin(ctx context.Context, email, password string) (string, *models.Admin, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.Admin), args.Error(2)
}

func (m *MockAuth) Admin(ctx context.Context, id int64) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAuth) CreateAdmin(ctx context.Context, req auth.CreateAdminRequest) (*models.Admin, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAuth) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Admin), args.Error(1)
}

func (m *MockAuth) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.OffsetPage), args.Error(1)
}

func (m *MockAuth) SetAdminPermissions(ctx context.Context, id int64, role string, perms models.PermissionSet) (*models.Admin, error) {
	args := m.Called(ctx, id, role, perms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAuth) RemoveAdmin(ctx context.Context, actorID, id int64) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Get(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalog) List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.OffsetPage), args.Error(1)
}

func (m *MockCatalog) Create(ctx context.Context, req store.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalog) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	args := m.Called(ctx, id, price)
	return args.Error(0)
}

func (m *MockCatalog) SetStock(ctx context.Context, id int64, hex, size string, quantity int) error {
	args := m.Called(ctx, id, hex, size, quantity)
	return args.Error(0)
}

func (m *MockCatalog) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCart struct {
	mock.Mock
}

func (m *MockCart) AddItem(ctx context.Context, userID, productID int64, size, color string) error {
	args := m.Called(ctx, userID, productID, size, color)
	return args.Error(0)
}

func (m *MockCart) UpdateItem(ctx context.Context, userID, productID int64, size, color string, quantity int) error {
	args := m.Called(ctx, userID, productID, size, color, quantity)
	return args.Error(0)
}

func (m *MockCart) GetCart(ctx context.Context, userID int64) (models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Cart), args.Error(1)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) order(args mock.Arguments) (*models.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockCheckout) orders(args mock.Arguments) ([]models.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockCheckout) offsetPage(args mock.Arguments) (*store.OffsetPage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.OffsetPage), args.Error(1)
}

func (m *MockCheckout) PlaceCOD(ctx context.Context, userID int64, items []models.LineItem, address models.Address) (*models.Order, error) {
	return m.order(m.Called(ctx, userID, items, address))
}

func (m *MockCheckout) PlaceCard(ctx context.Context, userID int64, items []models.LineItem, address models.Address, origin string) (*checkout.CardCheckout, error) {
	args := m.Called(ctx, userID, items, address, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.CardCheckout), args.Error(1)
}

func (m *MockCheckout) VerifyCard(ctx context.Context, userID, orderID int64, success bool) (*models.Order, error) {
	return m.order(m.Called(ctx, userID, orderID, success))
}

func (m *MockCheckout) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return m.orders(m.Called(ctx, userID))
}

func (m *MockCheckout) OrderHistory(ctx context.Context, userID int64, kind models.OrderKind, cursor string, limit int) (*store.CursorPage, error) {
	args := m.Called(ctx, userID, kind, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.CursorPage), args.Error(1)
}

func (m *MockCheckout) ListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return m.offsetPage(m.Called(ctx, page, pageSize))
}

func (m *MockCheckout) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *MockCheckout) ConfirmPayment(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockCheckout) CreatePreorder(ctx context.Context, userID int64, items []models.LineItem, address models.Address) (*models.Order, error) {
	return m.order(m.Called(ctx, userID, items, address))
}

func (m *MockCheckout) UserPreorders(ctx context.Context, userID int64) ([]models.Order, error) {
	return m.orders(m.Called(ctx, userID))
}

func (m *MockCheckout) ListPreorders(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return m.offsetPage(m.Called(ctx, page, pageSize))
}

func (m *MockCheckout) UpdatePreorderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	return m.order(m.Called(ctx, id, status))
}

func (m *MockCheckout) DeletePreorder(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}
