// Package checkout turns carts into orders and preorders and drives them
// through payment and fulfillment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/store"
)

const notifyTimeout = 10 * time.Second

type OrderStore interface {
	PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*models.Order, error)
	ConfirmCardPayment(ctx context.Context, orderID int64) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, kind models.OrderKind, page, pageSize int) (*store.OffsetPage, error)
	ListUserOrders(ctx context.Context, userID int64, kind models.OrderKind) ([]models.Order, error)
	ListOrdersCursor(ctx context.Context, userID int64, kind models.OrderKind, cursor string, limit int) (*store.CursorPage, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
	MarkOrderPaid(ctx context.Context, id int64) (*models.Order, bool, error)
	CancelOrder(ctx context.Context, id int64) error
	SetPaymentSession(ctx context.Context, id int64, sessionID string) error
	GetPreorder(ctx context.Context, id int64) (*models.Order, error)
	UpdatePreorderStatus(ctx context.Context, id int64, status models.PreorderStatus) (*models.Order, error)
	DeletePreorder(ctx context.Context, id, userID int64) error
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID int64) error
}

type ProductCache interface {
	Invalidate(ctx context.Context, ids ...int64)
}

type Options struct {
	DeliveryFee      decimal.Decimal
	PreorderLeadTime time.Duration
	FrontendURL      string
}

type Service struct {
	orders       OrderStore
	cart         CartClearer
	preorderCart CartClearer
	products     ProductCache
	gateway      payment.Gateway
	notifier     notify.Notifier
	opts         Options
	logger       zerolog.Logger

	pending sync.WaitGroup
}

func NewService(
	orders OrderStore,
	cart, preorderCart CartClearer,
	products ProductCache,
	gateway payment.Gateway,
	notifier notify.Notifier,
	opts Options,
	logger zerolog.Logger,
) *Service {
	return &Service{
		orders:       orders,
		cart:         cart,
		preorderCart: preorderCart,
		products:     products,
		gateway:      gateway,
		notifier:     notifier,
		opts:         opts,
		logger:       logger,
	}
}

// CardCheckout is a stored card order and the hosted page that collects
// its payment.
type CardCheckout struct {
	Order      *models.Order `json:"order"`
	SessionURL string        `json:"session_url"`
}

// PlaceCOD reconciles stock and stores a cash-on-delivery order, then
// empties the user's cart.
func (s *Service) PlaceCOD(ctx context.Context, userID int64, items []models.LineItem, address models.Address) (*models.Order, error) {
	order, err := s.orders.PlaceOrder(ctx, store.PlaceOrderRequest{
		UserID:         userID,
		Kind:           models.KindOrder,
		Items:          items,
		Address:        address,
		PaymentMethod:  models.PaymentCOD,
		Status:         models.OrderStatusPlaced,
		DeliveryFee:    s.opts.DeliveryFee,
		DecrementStock: true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("user_id", userID).
		Str("amount", order.Amount.StringFixed(2)).
		Msg("order placed")

	s.afterPlacement(ctx, s.cart, order, false)
	return order, nil
}

// PlaceCard stores an order without touching stock and opens a payment
// session for it. Stock is reconciled when the payment is verified.
func (s *Service) PlaceCard(ctx context.Context, userID int64, items []models.LineItem, address models.Address, origin string) (*CardCheckout, error) {
	order, err := s.orders.PlaceOrder(ctx, store.PlaceOrderRequest{
		UserID:        userID,
		Kind:          models.KindOrder,
		Items:         items,
		Address:       address,
		PaymentMethod: models.PaymentStripe,
		Status:        models.OrderStatusPlaced,
		DeliveryFee:   s.opts.DeliveryFee,
	})
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(origin, "/")
	if base == "" {
		base = strings.TrimRight(s.opts.FrontendURL, "/")
	}

	sessionItems := make([]payment.SessionItem, 0, len(order.Items))
	for _, item := range order.Items {
		sessionItems = append(sessionItems, payment.SessionItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Items:       sessionItems,
		DeliveryFee: order.DeliveryFee,
		SuccessURL:  fmt.Sprintf("%s/verify?success=true&orderId=%d", base, order.ID),
		CancelURL:   fmt.Sprintf("%s/verify?success=false&orderId=%d", base, order.ID),
	})
	if err != nil {
		s.abandon(ctx, order.ID, err)
		if apperr.KindOf(err) == apperr.KindExternal {
			return nil, err
		}
		return nil, apperr.External("Could not start card payment", err)
	}

	if err := s.orders.SetPaymentSession(ctx, order.ID, session.ID); err != nil {
		s.abandon(ctx, order.ID, err)
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("session_id", session.ID).
		Msg("card checkout started")

	order.PaymentSessionID = session.ID
	return &CardCheckout{Order: order, SessionURL: session.URL}, nil
}

func (s *Service) abandon(ctx context.Context, orderID int64, cause error) {
	s.logger.Warn().Err(cause).Int64("order_id", orderID).Msg("card checkout failed, cancelling order")
	if err := s.orders.CancelOrder(ctx, orderID); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to cancel abandoned order")
	}
}

// VerifyCard settles a card order after the customer returns from the
// payment page. A declined or expired session cancels the order; a paid
// one reconciles stock, marks the order paid and empties the cart.
func (s *Service) VerifyCard(ctx context.Context, userID, orderID int64, success bool) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID || order.Kind != models.KindOrder {
		return nil, database.ErrOrderNotFound
	}
	if order.Payment {
		return order, nil
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, database.ErrOrderCancelled
	}

	if !success {
		return s.cancel(ctx, order.ID)
	}

	if order.PaymentSessionID == "" {
		return nil, apperr.Validation("Order has no payment session")
	}

	status, err := s.gateway.SessionStatus(ctx, order.PaymentSessionID)
	if err != nil {
		return nil, err
	}

	switch status {
	case payment.StatusPaid:
		paid, err := s.orders.ConfirmCardPayment(ctx, order.ID)
		if err != nil {
			if errors.Is(err, database.ErrInsufficientStock) || apperr.KindOf(err) == apperr.KindNotFound {
				s.logger.Error().Err(err).Int64("order_id", order.ID).
					Msg("stock no longer available for paid order, cancelling")
				if cancelErr := s.orders.CancelOrder(ctx, order.ID); cancelErr != nil {
					s.logger.Error().Err(cancelErr).Int64("order_id", order.ID).Msg("failed to cancel order")
				}
			}
			return nil, err
		}

		s.logger.Info().
			Int64("order_id", paid.ID).
			Str("order_number", paid.OrderNumber).
			Msg("card payment verified")

		s.afterPlacement(ctx, s.cart, paid, false)
		return paid, nil

	case payment.StatusFailed:
		return s.cancel(ctx, order.ID)

	default:
		return nil, apperr.Validation("Payment not completed")
	}
}

func (s *Service) cancel(ctx context.Context, orderID int64) (*models.Order, error) {
	if err := s.orders.CancelOrder(ctx, orderID); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("order_id", orderID).Msg("order cancelled")
	return s.orders.GetOrder(ctx, orderID)
}

// afterPlacement runs the follow-ups of a successful placement. None of
// them can fail the request.
func (s *Service) afterPlacement(ctx context.Context, cart CartClearer, order *models.Order, isPreorder bool) {
	if err := cart.ClearCart(ctx, order.UserID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", order.UserID).Msg("failed to clear cart")
	}

	s.invalidateItems(ctx, order)
	s.notifyAsync(ctx, order, isPreorder)
}

func (s *Service) notifyAsync(ctx context.Context, order *models.Order, isPreorder bool) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyOrderCreated(nctx, order, isPreorder); err != nil {
			s.logger.Error().Err(err).
				Int64("order_id", order.ID).
				Str("order_number", order.OrderNumber).
				Msg("order notification failed")
		}
	}()
}

// Wait blocks until in-flight notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.orders.ListUserOrders(ctx, userID, models.KindOrder)
}

// OrderHistory pages through a user's orders newest first.
func (s *Service) OrderHistory(ctx context.Context, userID int64, kind models.OrderKind, cursor string, limit int) (*store.CursorPage, error) {
	if kind == "" {
		kind = models.KindOrder
	}
	if kind != models.KindOrder && kind != models.KindPreorder {
		return nil, apperr.Validation("Unknown order kind")
	}
	if limit < 1 || limit > store.MaxPageSize {
		limit = store.DefaultPageSize
	}
	return s.orders.ListOrdersCursor(ctx, userID, kind, cursor, limit)
}

func (s *Service) ListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return s.orders.ListOrders(ctx, models.KindOrder, page, pageSize)
}

// UpdateStatus sets any regular order status. Admins may move orders freely
// until an order is cancelled; cancelling returns its stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	if status == models.OrderStatusCancelled {
		order, err := s.cancel(ctx, orderID)
		if err != nil {
			return err
		}
		s.invalidateItems(ctx, order)
		return nil
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.logger.Info().Int64("order_id", orderID).Str("status", status).Msg("order status updated")
	return nil
}

// ConfirmPayment records a manual payment such as cash collected on delivery.
// A card order that never came back from the payment page takes its stock
// here.
func (s *Service) ConfirmPayment(ctx context.Context, orderID int64) error {
	order, reconciled, err := s.orders.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return err
	}

	s.logger.Info().
		Int64("order_id", orderID).
		Bool("stock_reconciled", reconciled).
		Msg("payment confirmed")

	if reconciled {
		s.invalidateItems(ctx, order)
		s.notifyAsync(ctx, order, false)
	}
	return nil
}

// CreatePreorder reserves stock for preorder-eligible products and stores a
// pending preorder with an estimated delivery date.
func (s *Service) CreatePreorder(ctx context.Context, userID int64, items []models.LineItem, address models.Address) (*models.Order, error) {
	eta := time.Now().Add(s.opts.PreorderLeadTime).UTC()

	order, err := s.orders.PlaceOrder(ctx, store.PlaceOrderRequest{
		UserID:                  userID,
		Kind:                    models.KindPreorder,
		Items:                   items,
		Address:                 address,
		PaymentMethod:           models.PaymentCOD,
		Status:                  string(models.PreorderPending),
		DeliveryFee:             s.opts.DeliveryFee,
		EstimatedDelivery:       &eta,
		DecrementStock:          true,
		RequirePreorderEligible: true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("preorder_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("user_id", userID).
		Msg("preorder created")

	s.afterPlacement(ctx, s.preorderCart, order, true)
	return order, nil
}

func (s *Service) UserPreorders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.orders.ListUserOrders(ctx, userID, models.KindPreorder)
}

func (s *Service) ListPreorders(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return s.orders.ListOrders(ctx, models.KindPreorder, page, pageSize)
}

func (s *Service) UpdatePreorderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	to := models.PreorderStatus(status)
	if !to.Valid() {
		return nil, database.ErrInvalidStatus
	}

	preorder, err := s.orders.UpdatePreorderStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}

	if to == models.PreorderCancelled {
		s.invalidateItems(ctx, preorder)
	}

	s.logger.Info().Int64("preorder_id", id).Str("status", status).Msg("preorder status updated")
	return preorder, nil
}

// DeletePreorder lets the owner withdraw a preorder that has not reached a
// terminal state.
func (s *Service) DeletePreorder(ctx context.Context, userID, id int64) error {
	preorder, err := s.orders.GetPreorder(ctx, id)
	if err != nil {
		return err
	}
	if preorder.UserID != userID {
		return database.ErrPreorderNotFound
	}

	if err := s.orders.DeletePreorder(ctx, id, userID); err != nil {
		return err
	}

	s.invalidateItems(ctx, preorder)
	s.logger.Info().Int64("preorder_id", id).Int64("user_id", userID).Msg("preorder deleted")
	return nil
}

func (s *Service) invalidateItems(ctx context.Context, order *models.Order) {
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	s.products.Invalidate(ctx, ids...)
}
