package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func TestPlaceOrderDecrementsStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	order, err := PlaceOrder(ctx, db, placeRequest(user.ID,
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 3}))
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 2 {
		t.Errorf("Expected stock 2, got %d", got)
	}

	if len(order.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.Quantity != 3 || !item.UnitPrice.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Unexpected line item: %+v", item)
	}
	if item.Image != "black-front.png" || item.Name != "Shirt" {
		t.Errorf("Expected snapshot of name and image, got %+v", item)
	}

	expected := decimal.NewFromInt(85)
	if !order.Amount.Equal(expected) {
		t.Errorf("Expected amount %s, got %s", expected, order.Amount)
	}
	if order.Status != models.OrderStatusPlaced || order.Payment {
		t.Errorf("Unexpected status/payment: %s/%v", order.Status, order.Payment)
	}
	if order.Address.City != "London" {
		t.Errorf("Address not persisted: %+v", order.Address)
	}
	if !order.StockReserved {
		t.Error("Expected stock to be reserved")
	}
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	_, err := PlaceOrder(ctx, db, placeRequest(user.ID,
		models.LineItem{ProductID: product.ID, Size: "L", Color: "#000000", Quantity: 1},
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 6}))

	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock error, got: %v", err)
	}
	var stockErr *database.StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("Expected *StockError, got %T", err)
	}
	if stockErr.Available != 5 || stockErr.Shortfall() != 1 || stockErr.Name != "Shirt" {
		t.Errorf("Unexpected stock error: %+v", stockErr)
	}

	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 5 {
		t.Errorf("Stock should remain unchanged at 5, got %d", got)
	}
	if got := stockOf(t, db, product.ID, "#000000", "L"); got != 2 {
		t.Errorf("Earlier line should be rolled back, stock 2, got %d", got)
	}
}

func TestPlaceOrderLookupFailures(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	tests := []struct {
		name string
		item models.LineItem
		want error
	}{
		{"missing product", models.LineItem{ProductID: product.ID + 99, Size: "M", Quantity: 1}, database.ErrProductNotFound},
		{"missing color", models.LineItem{ProductID: product.ID, Size: "M", Color: "#ff0000", Quantity: 1}, models.ErrVariantNotFound},
		{"color required", models.LineItem{ProductID: product.ID, Size: "M", Quantity: 1}, models.ErrColorRequired},
		{"missing size", models.LineItem{ProductID: product.ID, Size: "XS", Color: "#000000", Quantity: 1}, models.ErrSizeNotFound},
		{"sold out", models.LineItem{ProductID: product.ID, Size: "M", Color: "off-white", Quantity: 1}, database.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlaceOrder(ctx, db, placeRequest(user.ID, tt.item))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPriceSnapshotSurvivesCatalogEdit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	order, err := PlaceOrder(ctx, db, placeRequest(user.ID,
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 2}))
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if err := UpdateProductPrice(ctx, db, product.ID, decimal.NewFromInt(99)); err != nil {
		t.Fatalf("Update price: %v", err)
	}

	stored, err := GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if !stored.Amount.Equal(order.Amount) {
		t.Errorf("Amount changed from %s to %s", order.Amount, stored.Amount)
	}
	if !stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Line price changed to %s", stored.Items[0].UnitPrice)
	}
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	if err := SetSizeStock(ctx, db, product.ID, "#000000", "M", 20); err != nil {
		t.Fatalf("Set stock: %v", err)
	}

	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := PlaceOrder(ctx, db, placeRequest(user.ID,
				models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 3}))
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
		default:
			t.Logf("Unexpected error: %v", err)
		}
	}

	if successCount > 6 {
		t.Errorf("Oversold: %d orders of 3 against stock 20", successCount)
	}

	expectedStock := 20 - successCount*3
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != expectedStock {
		t.Errorf("Expected final stock %d, got %d", expectedStock, got)
	}
}

func TestCardOrderConfirmation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	req := placeRequest(user.ID, models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 2})
	req.PaymentMethod = models.PaymentStripe
	req.DecrementStock = false

	order, err := PlaceOrder(ctx, db, req)
	if err != nil {
		t.Fatalf("Place card order: %v", err)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 5 {
		t.Errorf("Card order must not touch stock before payment, got %d", got)
	}

	if err := SetPaymentSession(ctx, db, order.ID, "cs_test_1"); err != nil {
		t.Fatalf("Set session: %v", err)
	}

	paid, err := ConfirmCardPayment(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Confirm payment: %v", err)
	}
	if !paid.Payment || paid.PaymentSessionID != "cs_test_1" {
		t.Errorf("Unexpected paid order: %+v", paid)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 3 {
		t.Errorf("Expected stock 3 after payment, got %d", got)
	}

	if _, err := ConfirmCardPayment(ctx, db, order.ID); err != nil {
		t.Fatalf("Second confirmation: %v", err)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 3 {
		t.Errorf("Second confirmation must not decrement again, got %d", got)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	order, err := PlaceOrder(ctx, db, placeRequest(user.ID,
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 4}))
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if err := CancelOrder(ctx, db, order.ID); err != nil {
		t.Fatalf("Cancel order: %v", err)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 5 {
		t.Errorf("Expected stock restored to 5, got %d", got)
	}

	if _, err := ConfirmCardPayment(ctx, db, order.ID); !errors.Is(err, database.ErrOrderCancelled) {
		t.Errorf("Expected cancelled order error, got %v", err)
	}
}

func TestUpdateOrderStatusIsFreeForm(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	order, err := PlaceOrder(ctx, db, placeRequest(user.ID,
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 1}))
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	for _, status := range []string{models.OrderStatusDelivered, models.OrderStatusPacking, models.OrderStatusPlaced} {
		if err := UpdateOrderStatus(ctx, db, order.ID, status); err != nil {
			t.Fatalf("Set %q: %v", status, err)
		}
	}

	if err := UpdateOrderStatus(ctx, db, order.ID, "Lost"); !errors.Is(err, database.ErrInvalidStatus) {
		t.Errorf("Expected invalid status, got %v", err)
	}

	stored, reconciled, err := MarkOrderPaid(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Mark paid: %v", err)
	}
	if reconciled {
		t.Error("Order already holding stock must not be reconciled again")
	}
	if !stored.Payment || stored.Status != models.OrderStatusPlaced {
		t.Errorf("Unexpected order state: %+v", stored)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 4 {
		t.Errorf("Manual payment must not decrement a placed order again, got %d", got)
	}
}

func TestAdminCancelReturnsStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	order, err := PlaceOrder(ctx, db, placeRequest(user.ID,
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 3}))
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if err := UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusCancelled); err != nil {
		t.Fatalf("Cancel via status: %v", err)
	}

	stored, err := GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if stored.Status != models.OrderStatusCancelled || stored.StockReserved {
		t.Errorf("Unexpected order state: status=%q reserved=%v", stored.Status, stored.StockReserved)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 5 {
		t.Errorf("Expected stock restored to 5, got %d", got)
	}

	if err := UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusShipped); !errors.Is(err, database.ErrOrderCancelled) {
		t.Errorf("Expected cancelled order error, got %v", err)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 5 {
		t.Errorf("Reviving a cancelled order must not touch stock, got %d", got)
	}
}

func TestMarkOrderPaidSettlesCardOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	req := placeRequest(user.ID, models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 2})
	req.PaymentMethod = models.PaymentStripe
	req.DecrementStock = false

	order, err := PlaceOrder(ctx, db, req)
	if err != nil {
		t.Fatalf("Place card order: %v", err)
	}

	paid, reconciled, err := MarkOrderPaid(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Mark paid: %v", err)
	}
	if !reconciled {
		t.Error("Expected card order stock to be reconciled")
	}
	if !paid.Payment || !paid.StockReserved {
		t.Errorf("Unexpected order state: payment=%v reserved=%v", paid.Payment, paid.StockReserved)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 3 {
		t.Errorf("Expected stock 3 after manual payment, got %d", got)
	}

	if _, err := ConfirmCardPayment(ctx, db, order.ID); err != nil {
		t.Fatalf("Card confirmation after manual payment: %v", err)
	}
	if got := stockOf(t, db, product.ID, "#000000", "M"); got != 3 {
		t.Errorf("Card confirmation must not decrement again, got %d", got)
	}
}

func TestMarkOrderPaidRejects(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, true)

	t.Run("cancelled order", func(t *testing.T) {
		req := placeRequest(user.ID, models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 1})
		req.PaymentMethod = models.PaymentStripe
		req.DecrementStock = false

		order, err := PlaceOrder(ctx, db, req)
		if err != nil {
			t.Fatalf("Place card order: %v", err)
		}
		if err := CancelOrder(ctx, db, order.ID); err != nil {
			t.Fatalf("Cancel order: %v", err)
		}

		if _, _, err := MarkOrderPaid(ctx, db, order.ID); !errors.Is(err, database.ErrOrderCancelled) {
			t.Errorf("Expected cancelled order error, got %v", err)
		}
		if got := stockOf(t, db, product.ID, "#000000", "M"); got != 5 {
			t.Errorf("Cancelled order must not take stock, got %d", got)
		}
	})

	t.Run("insufficient stock", func(t *testing.T) {
		req := placeRequest(user.ID, models.LineItem{ProductID: product.ID, Size: "L", Color: "#000000", Quantity: 2})
		req.PaymentMethod = models.PaymentStripe
		req.DecrementStock = false

		order, err := PlaceOrder(ctx, db, req)
		if err != nil {
			t.Fatalf("Place card order: %v", err)
		}
		if err := SetSizeStock(ctx, db, product.ID, "#000000", "L", 1); err != nil {
			t.Fatalf("Set stock: %v", err)
		}

		if _, _, err := MarkOrderPaid(ctx, db, order.ID); !errors.Is(err, database.ErrInsufficientStock) {
			t.Errorf("Expected insufficient stock, got %v", err)
		}
		stored, err := GetOrder(ctx, db, order.ID)
		if err != nil {
			t.Fatalf("Get order: %v", err)
		}
		if stored.Payment || stored.StockReserved {
			t.Errorf("Failed payment must leave the order unpaid: %+v", stored)
		}
	})

	t.Run("preorder", func(t *testing.T) {
		preorder := placePreorder(t, db, user.ID, product.ID, 1)

		if _, _, err := MarkOrderPaid(ctx, db, preorder.ID); !errors.Is(err, database.ErrOrderNotFound) {
			t.Errorf("Expected order not found for a preorder, got %v", err)
		}
	})
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, db, "buyer@example.com")
	product := seedShirt(t, db, false)

	if err := SetSizeStock(ctx, db, product.ID, "#000000", "M", 100); err != nil {
		t.Fatalf("Set stock: %v", err)
	}

	for i := 0; i < 15; i++ {
		_, err := PlaceOrder(ctx, db, placeRequest(user.ID,
			models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 1}))
		if err != nil {
			t.Fatalf("Create order %d: %v", i, err)
		}
	}

	page1, err := ListOrdersCursor(ctx, db, user.ID, models.KindOrder, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}

	if !page1.HasMore {
		t.Error("Page 1 should have more results")
	}

	if page1.NextCursor == "" {
		t.Error("Page 1 should have a next cursor")
	}

	page2, err := ListOrdersCursor(ctx, db, user.ID, models.KindOrder, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}

	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}
	if got := len(page2.Items.([]models.Order)); got != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", got)
	}

	all, err := ListUserOrders(ctx, db, user.ID, models.KindOrder)
	if err != nil {
		t.Fatalf("List user orders: %v", err)
	}
	if len(all) != 15 || len(all[0].Items) != 1 {
		t.Errorf("Expected 15 orders with items, got %d", len(all))
	}

	admin, err := ListOrders(ctx, db, models.KindOrder, 2, 10)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if admin.Total != 15 || len(admin.Items.([]models.Order)) != 5 {
		t.Errorf("Unexpected admin page: %+v", admin)
	}
}

func TestPlaceOrderUnknownUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	product := seedShirt(t, db, false)
	_, err := PlaceOrder(ctx, db, placeRequest(424242,
		models.LineItem{ProductID: product.ID, Size: "M", Color: "#000000", Quantity: 1}))
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected user not found, got %v", err)
	}
}
