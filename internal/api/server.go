// Package api exposes the storefront and back-office operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/api/middleware"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type AuthService interface {
	Authenticate(token string) (*auth.Claims, error)
	Register(ctx context.Context, name, email, password string) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	AdminLogin(ctx context.Context, email, password string) (string, *models.Admin, error)
	Admin(ctx context.Context, id int64) (*models.Admin, error)
	CreateAdmin(ctx context.Context, req auth.CreateAdminRequest) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	SetAdminPermissions(ctx context.Context, id int64, role string, perms models.PermissionSet) (*models.Admin, error)
	RemoveAdmin(ctx context.Context, actorID, id int64) error
}

type CatalogService interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	Create(ctx context.Context, req store.CreateProductRequest) (*models.Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error
	SetStock(ctx context.Context, id int64, hex, size string, quantity int) error
	Delete(ctx context.Context, id int64) error
}

type CartService interface {
	AddItem(ctx context.Context, userID, productID int64, size, color string) error
	UpdateItem(ctx context.Context, userID, productID int64, size, color string, quantity int) error
	GetCart(ctx context.Context, userID int64) (models.Cart, error)
}

type CheckoutService interface {
	PlaceCOD(ctx context.Context, userID int64, items []models.LineItem, address models.Address) (*models.Order, error)
	PlaceCard(ctx context.Context, userID int64, items []models.LineItem, address models.Address, origin string) (*checkout.CardCheckout, error)
	VerifyCard(ctx context.Context, userID, orderID int64, success bool) (*models.Order, error)
	UserOrders(ctx context.Context, userID int64) ([]models.Order, error)
	OrderHistory(ctx context.Context, userID int64, kind models.OrderKind, cursor string, limit int) (*store.CursorPage, error)
	ListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	UpdateStatus(ctx context.Context, orderID int64, status string) error
	ConfirmPayment(ctx context.Context, orderID int64) error
	CreatePreorder(ctx context.Context, userID int64, items []models.LineItem, address models.Address) (*models.Order, error)
	UserPreorders(ctx context.Context, userID int64) ([]models.Order, error)
	ListPreorders(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	UpdatePreorderStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	DeletePreorder(ctx context.Context, userID, id int64) error
}

const requestTimeout = 30 * time.Second

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Auth         AuthService
	Catalog      CatalogService
	Cart         CartService
	PreorderCart CartService
	Checkout     CheckoutService
	HealthChecks map[string]HealthCheck
	Logger       zerolog.Logger
}

type Server struct {
	auth         AuthService
	catalog      CatalogService
	cart         CartService
	preorderCart CartService
	checkout     CheckoutService
	healthChecks map[string]HealthCheck
	logger       zerolog.Logger
}

func NewServer(deps Deps) *Server {
	return &Server{
		auth:         deps.Auth,
		catalog:      deps.Catalog,
		cart:         deps.Cart,
		preorderCart: deps.PreorderCart,
		checkout:     deps.Checkout,
		healthChecks: deps.HealthChecks,
		logger:       deps.Logger,
	}
}

func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.TokenPayload(s.auth))
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recover(s.logger))
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/admin", s.handleAdminLogin)
		})

		r.Route("/product", func(r chi.Router) {
			r.Get("/list", s.handleListProducts)
			r.Post("/single", s.handleSingleProduct)
			r.With(s.requireAdmin(models.DomainProducts, models.ActionCreate)).Post("/add", s.handleAddProduct)
			r.With(s.requireAdmin(models.DomainProducts, models.ActionUpdate)).Post("/price", s.handleProductPrice)
			r.With(s.requireAdmin(models.DomainProducts, models.ActionUpdate)).Post("/stock", s.handleProductStock)
			r.With(s.requireAdmin(models.DomainProducts, models.ActionDelete)).Post("/remove", s.handleRemoveProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/add", s.handleCartAdd(s.cart))
			r.Post("/update", s.handleCartUpdate(s.cart))
			r.Get("/get", s.handleCartGet(s.cart))
		})

		r.Route("/preorder-cart", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/add", s.handleCartAdd(s.preorderCart))
			r.Post("/update", s.handleCartUpdate(s.preorderCart))
			r.Get("/get", s.handleCartGet(s.preorderCart))
		})

		r.Route("/order", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/place", s.handlePlaceOrder)
				r.Post("/stripe", s.handlePlaceCardOrder)
				r.Post("/verifyStripe", s.handleVerifyCard)
				r.Post("/userorders", s.handleUserOrders)
				r.Get("/history", s.handleOrderHistory)
			})
			r.With(s.requireAdmin(models.DomainOrders, models.ActionView)).Post("/list", s.handleListOrders)
			r.With(s.requireAdmin(models.DomainOrders, models.ActionUpdate)).Post("/status", s.handleOrderStatus)
			r.With(s.requireAdmin(models.DomainOrders, models.ActionUpdate)).Post("/payment", s.handleConfirmPayment)
		})

		r.Route("/preorder", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/create", s.handleCreatePreorder)
				r.Post("/user", s.handleUserPreorders)
				r.Post("/delete", s.handleDeletePreorder)
			})
			r.With(s.requireAdmin(models.DomainPreorders, models.ActionView)).Post("/list", s.handleListPreorders)
			r.With(s.requireAdmin(models.DomainPreorders, models.ActionUpdate)).Post("/status", s.handlePreorderStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(s.requireAdmin(models.DomainAdmins, models.ActionCreate)).Post("/create", s.handleCreateAdmin)
			r.With(s.requireAdmin(models.DomainAdmins, models.ActionView)).Post("/list", s.handleListAdmins)
			r.With(s.requireAdmin(models.DomainAdmins, models.ActionView)).Post("/users", s.handleListUsers)
			r.With(s.requireAdmin(models.DomainAdmins, models.ActionUpdate)).Post("/permissions", s.handleAdminPermissions)
			r.With(s.requireAdmin(models.DomainAdmins, models.ActionDelete)).Post("/remove", s.handleRemoveAdmin)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusNotFound, envelope{"success": false, "message": "Route not found"})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.healthChecks))
	for name, check := range s.healthChecks {
		if err := check(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	respondJSON(w, r, status, envelope{
		"success": status == http.StatusOK,
		"checks":  checks,
	})
}
