package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-cart/api/routes"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/checkout"
	"github.com/angelmondragon/storefront-cart/internal/events"
	"github.com/angelmondragon/storefront-cart/internal/marketplace"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/angelmondragon/storefront-cart/pkg/instance"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
	"github.com/angelmondragon/storefront-cart/pkg/migrate"
	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	readiness := map[string]redis.Pinger{}
	backend := cfg.Cart.StateBackend()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() || backend == enums.StateBackendRedis {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		readiness["redis"] = redisClient
	}

	var dbClient *db.Client
	if backend == enums.StateBackendSQL {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, dbClient.Close())
		}()
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
		readiness["db"] = dbClient
	}

	repo, locker, err := stateBackend(cfg, backend, redisClient, dbClient)
	if err != nil {
		return err
	}

	fees, err := pricing.NewFeeSchedule(cfg.Cart.MotorcycleFee, cfg.Cart.BicycleFee)
	if err != nil {
		return err
	}

	upstream, err := marketplace.NewClient(cfg.Marketplace.BaseURL, marketplace.WithTimeout(cfg.Marketplace.Timeout))
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher, err = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BufferSize, logg)
		if err != nil {
			return err
		}
	}
	defer func() {
		err = multierr.Append(err, publisher.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:      repo,
		Locker:    locker,
		Vouchers:  upstream,
		Publisher: publisher,
		Metrics:   cartMetrics,
		Logger:    logg,
		Options: cart.Options{
			QuantityPolicy:  cfg.Cart.Policy(),
			MaxQuantity:     cfg.Cart.MaxQuantity,
			AutoSelectOnAdd: cfg.Cart.AutoSelectOnAdd,
			Fees:            fees,
		},
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:     cartService,
		Backend:   upstream,
		Publisher: publisher,
		Metrics:   cartMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"instance":      instance.ID(),
		"state_backend": backend.String(),
		"kafka":         cfg.Kafka.Enabled(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, redisClient, readiness, registry, cartService, checkoutService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func stateBackend(cfg *config.Config, backend enums.StateBackend, redisClient *redis.Client, dbClient *db.Client) (cart.StateRepository, cart.SessionLocker, error) {
	var locker cart.SessionLocker = cart.NewLocalSessionLocker()
	if redisClient != nil {
		redisLocker, err := cart.NewRedisSessionLocker(redisClient, cfg.Cart.LockTTL, cfg.Cart.LockWait)
		if err != nil {
			return nil, nil, err
		}
		locker = redisLocker
	}

	if backend == enums.StateBackendSQL {
		repo, err := cart.NewSQLStateRepository(dbClient.DB())
		if err != nil {
			return nil, nil, err
		}
		return repo, locker, nil
	}

	repo, err := cart.NewRedisStateRepository(redisClient, cfg.Cart.TTL)
	if err != nil {
		return nil, nil, err
	}
	return repo, locker, nil
}
