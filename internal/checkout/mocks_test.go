package checkout

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/store"
)

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) ConfirmCardPayment(ctx context.Context, orderID int64) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) ListOrders(ctx context.Context, kind models.OrderKind, page, pageSize int) (*store.OffsetPage, error) {
	args := m.Called(ctx, kind, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.OffsetPage), args.Error(1)
}

func (m *MockOrderStore) ListUserOrders(ctx context.Context, userID int64, kind models.OrderKind) ([]models.Order, error) {
	args := m.Called(ctx, userID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderStore) ListOrdersCursor(ctx context.Context, userID int64, kind models.OrderKind, cursor string, limit int) (*store.CursorPage, error) {
	args := m.Called(ctx, userID, kind, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.CursorPage), args.Error(1)
}

func (m *MockOrderStore) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderStore) MarkOrderPaid(ctx context.Context, id int64) (*models.Order, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Order), args.Bool(1), args.Error(2)
}

func (m *MockOrderStore) CancelOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderStore) SetPaymentSession(ctx context.Context, id int64, sessionID string) error {
	return m.Called(ctx, id, sessionID).Error(0)
}

func (m *MockOrderStore) GetPreorder(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) UpdatePreorderStatus(ctx context.Context, id int64, status models.PreorderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) DeletePreorder(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

type MockCart struct {
	mock.Mock
}

func (m *MockCart) ClearCart(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, ids ...int64) {
	m.Called(ctx, ids)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockGateway) SessionStatus(ctx context.Context, sessionID string) (payment.Status, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(payment.Status), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOrderCreated(ctx context.Context, order *models.Order, isPreorder bool) error {
	return m.Called(ctx, order, isPreorder).Error(0)
}

func (m *MockNotifier) Close() error {
	return m.Called().Error(0)
}
