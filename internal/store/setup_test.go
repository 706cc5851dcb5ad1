package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := database.Migrate(dsn, "../../migrations", "up"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func seedUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, email, "Test User", "")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

// seedShirt creates a two-color shirt priced at 25 with M stock of 5 in black.
func seedShirt(t *testing.T, db *sql.DB, preorder bool) *models.Product {
	t.Helper()
	product, err := CreateProduct(context.Background(), db, CreateProductRequest{
		Name:             "Shirt",
		Price:            decimal.NewFromInt(25),
		PreorderEligible: preorder,
		Colors: []models.ColorVariant{
			{
				Name:   "Black",
				Hex:    "#000000",
				Images: []string{"black-front.png"},
				Sizes:  []models.SizeStock{{Size: "M", Quantity: 5}, {Size: "L", Quantity: 2}},
			},
			{
				Name:   "Off White",
				Hex:    "off-white",
				Images: []string{"white.png"},
				Sizes:  []models.SizeStock{{Size: "M", Quantity: 0}},
			},
		},
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func stockOf(t *testing.T, db *sql.DB, productID int64, hex, size string) int {
	t.Helper()
	product, err := GetProduct(context.Background(), db, productID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	_, entry, err := product.Select(hex, size)
	if err != nil {
		t.Fatalf("Select %s/%s: %v", hex, size, err)
	}
	return entry.Quantity
}

func placeRequest(userID int64, items ...models.LineItem) PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID:         userID,
		Kind:           models.KindOrder,
		Items:          items,
		Address:        models.Address{FirstName: "Ada", City: "London", Country: "UK"},
		PaymentMethod:  models.PaymentCOD,
		Status:         models.OrderStatusPlaced,
		DeliveryFee:    decimal.NewFromInt(10),
		DecrementStock: true,
	}
}
