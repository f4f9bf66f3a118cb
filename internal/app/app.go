// Package app собирает сервис RyujinBites: хранилище, прикладные сервисы,
// HTTP API, фоновые воркеры и служебный HTTP-сервер.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/ryujinbites/internal/health"
	"github.com/vladislavdragonenkov/ryujinbites/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/catalog"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/coupon"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/identity"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/order"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/outbox"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/review"
	"github.com/vladislavdragonenkov/ryujinbites/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/ryujinbites/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены ctx или падения HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	m := metrics.New()
	services, err := buildServices(ctx, cfg, deps, m)
	if err != nil {
		return err
	}

	producer, err := initKafkaProducer(cfg, logger)
	if err != nil {
		producer = nil
	}
	defer closeKafkaProducer(producer, logger)

	var outboxWorker *worker
	if producer != nil {
		w := outbox.NewWorker(deps.outboxRepo, kafka.NewOutboxPublisher(producer),
			outbox.WithLogger(log.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		outboxWorker = startWorker(ctx, w.Run)
	} else {
		logger.Info("kafka is not configured, domain events stay in the outbox")
	}
	defer shutdownWorker(outboxWorker, "outbox", logger)

	cleanup := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(log.WithField("component", "idempotency-cleanup-worker")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
		idempotency.WithMetrics(m),
	)
	cleanupWorker := startWorker(ctx, cleanup.Run)
	defer shutdownWorker(cleanupWorker, "idempotency-cleanup", logger)

	healthHandler := newHealthHandler(cfg, deps)
	metricsSrv, err := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)
	if err != nil {
		return err
	}
	defer shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)

	router := httpapi.NewRouter(services, httpapi.Config{AllowedOrigins: cfg.AllowedOrigins},
		httpapi.WithLogger(log.WithField("component", "http")),
		httpapi.WithMetrics(m),
	)
	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}
	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(version.Fields()).Infof("HTTP API слушает %s", lis.Addr())
		errCh <- apiSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildServices собирает прикладные сервисы поверх хранилищ и создаёт главного администратора.
func buildServices(ctx context.Context, cfg Config, deps *runtimeDependencies, m *metrics.Metrics) (httpapi.Services, error) {
	recorder := outbox.NewRecorder(deps.outboxRepo, log.WithField("component", "outbox-recorder"))

	accounts := identity.NewAccounts(identity.NewMemoryProvider(), deps.customers, deps.admins,
		log.WithField("component", "accounts"))
	if _, err := accounts.Bootstrap(ctx, identity.BootstrapInput{
		Name:     cfg.Bootstrap.Name,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
	}); err != nil {
		return httpapi.Services{}, fmt.Errorf("bootstrap administrator: %w", err)
	}

	return httpapi.Services{
		Orders: order.NewService(order.Repositories{
			Orders:    deps.orders,
			Payments:  deps.payments,
			Products:  deps.products,
			Coupons:   deps.coupons,
			Customers: deps.customers,
			Timeline:  deps.timelineRepo,
		}, order.WithEvents(recorder), order.WithMetrics(m)),
		Reviews: review.NewService(deps.reviews, deps.products, deps.customers,
			review.WithEvents(recorder), review.WithMetrics(m)),
		Catalog:     catalog.NewService(deps.categories, deps.products, log.WithField("component", "catalog-service")),
		Coupons:     coupon.NewService(deps.coupons, log.WithField("component", "coupon-service")),
		Accounts:    accounts,
		Idempotency: idempotency.NewGuard(deps.idempotencyRepo, cfg.IdempotencyTTL, nil),
	}, nil
}

// newHealthHandler регистрирует проверки хранилища и очереди outbox.
func newHealthHandler(cfg Config, deps *runtimeDependencies) *healthcheck.Handler {
	h := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		h.RegisterChecker("storage", deps.storageChecker)
	}
	h.RegisterChecker("outbox", healthcheck.NewFuncChecker("outbox", false, func(ctx context.Context) error {
		stats, err := deps.outboxRepo.Stats(ctx)
		if err != nil {
			return err
		}
		if cfg.OutboxMaxPending > 0 && stats.PendingCount > cfg.OutboxMaxPending {
			return fmt.Errorf("outbox backlog %d exceeds %d", stats.PendingCount, cfg.OutboxMaxPending)
		}
		return nil
	}))
	return h
}

// startMetricsServer запускает служебный HTTP-сервер: /metrics и health checks.
// Пустой addr отключает сервер.
func startMetricsServer(addr string, logger *log.Entry, health *healthcheck.Handler) (*http.Server, error) {
	if addr == "" {
		return nil, nil
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	srv := &http.Server{Handler: opsMux(health), ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", lis.Addr())
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", lis.Addr(), lis.Addr(), lis.Addr())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	return srv, nil
}

// opsMux - маршруты служебного сервера.
func opsMux(health *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)
	mux.HandleFunc("/readyz", health.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
