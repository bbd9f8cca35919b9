package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/fjod/go_cart/storefront/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("storefront", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx := context.Background()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg)

	persister := storage.NewPersister(store, log, storage.WithDegradedHook(func(op string) {
		m.StorageDegraded.WithLabelValues(op).Inc()
	}))
	defer persister.Close()

	cartStore := cart.NewStore(ctx, persister, cart.DefaultKey, log)
	orders := order.NewRepository(ctx, persister, order.DefaultKey, log)

	pub, err := openPublisher(cfg, log)
	if err != nil {
		log.Fatal("failed to open event publisher", zap.String("driver", cfg.EventsDriver), zap.Error(err))
	}
	defer pub.Close()

	checkoutService := checkout.NewService(
		cartStore,
		orders,
		order.NewFactory(order.SystemClock{}, order.RandomIDs{}),
		payment.NewSimulatedGateway(cfg.PaymentDelay, payment.RandomStatus{}),
		pub,
		log,
		checkout.WithOutcomeHook(func(outcome string) {
			m.Checkouts.WithLabelValues(outcome).Inc()
		}),
	)

	router := h.NewRouter(h.RouterConfig{
		Catalog:        catalog.NewClient(cfg.CatalogBaseURL, cfg.RequestTimeout, log),
		Cart:           cartStore,
		Orders:         orders,
		Checkout:       checkoutService,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.RequestTimeout,
		AccessLog:      true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("storage", cfg.StorageDriver),
			zap.String("events", cfg.EventsDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if keys := persister.Unsynced(); len(keys) > 0 {
		log.Warn("exiting with unsynced data", zap.Strings("keys", keys))
	}

	log.Info("server exited")
}

func openStore(ctx context.Context, cfg *Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case DriverMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return storage.NewMemoryStore(), nil
	case DriverSQLite:
		return storage.NewSQLiteStore(cfg.SQLitePath)
	case DriverPostgres:
		return storage.NewPostgresStore(cfg.Postgres)
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return storage.NewRedisStore(client), nil
	case DriverMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		return storage.NewMongoStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openPublisher(cfg *Config, log *zap.Logger) (publisher.Publisher, error) {
	switch cfg.EventsDriver {
	case EventsKafka:
		return publisher.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...), nil
	case EventsAMQP:
		return publisher.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
	default:
		return publisher.NewLogPublisher(log), nil
	}
}
