package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/safar/go-storefront/internal/api"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/catalog"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/logging"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, "up"); err != nil {
			return err
		}
		logger.Info().Str("dir", cfg.Database.MigrationsPath).Msg("migrations applied")
	}

	ctx = logger.WithContext(ctx)

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return err
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")

	pg := store.NewPostgres(db)
	products := catalog.NewCache(rdb, pg, cfg.Redis.ProductTTL, logger)

	carts := cart.NewRepository(rdb, cfg.Redis.CartTTL)
	regularCart := cart.NewService(models.CartRegular, carts, products, logger)
	preorderCart := cart.NewService(models.CartPreorder, carts, products, logger)

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer notifier.Close()

	gateway := payment.NewStripeClient(cfg.Payment, &http.Client{Timeout: 15 * time.Second})

	orders := checkout.NewService(pg, regularCart, preorderCart, products, gateway, notifier, checkout.Options{
		DeliveryFee:      cfg.Shop.DeliveryFee,
		PreorderLeadTime: cfg.Shop.PreorderLeadTime,
		FrontendURL:      cfg.Payment.FrontendURL,
	}, logger)
	defer orders.Wait()

	tokens, err := auth.NewTokenMaker(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	presets, err := auth.LoadRolePresets(cfg.Auth.PermissionsFile)
	if err != nil {
		return err
	}

	if _, err := auth.EnsureSuperAdmin(ctx, pg, cfg.Auth, logger); err != nil {
		return err
	}

	server := api.NewServer(api.Deps{
		Auth:         auth.NewService(pg, pg, tokens, presets, logger),
		Catalog:      catalog.NewService(pg, products, logger),
		Cart:         regularCart,
		PreorderCart: preorderCart,
		Checkout:     orders,
		HealthChecks: map[string]api.HealthCheck{
			"postgres": pg.Ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
