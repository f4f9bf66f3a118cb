package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ryujinbites/internal/health"
	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/memory"
	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/postgres"
)

// runtimeDependencies - хранилища выбранного драйвера.
type runtimeDependencies struct {
	orders          domain.OrderRepository
	payments        domain.PaymentRepository
	categories      domain.CategoryRepository
	products        domain.ProductRepository
	coupons         domain.CouponRepository
	customers       domain.CustomerRepository
	admins          domain.AdministratorRepository
	reviews         domain.ReviewRepository
	timelineRepo    domain.TimelineRepository
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository

	// storageChecker равен nil для хранилища в памяти.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies открывает хранилище согласно cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory storage")
		return memoryDependencies(), nil
	case StorageDriverPostgres:
		return postgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func memoryDependencies() *runtimeDependencies {
	store := memory.NewStore()
	return &runtimeDependencies{
		orders:          store.Orders(),
		payments:        store.Payments(),
		categories:      store.Categories(),
		products:        store.Products(),
		coupons:         store.Coupons(),
		customers:       store.Customers(),
		admins:          store.Administrators(),
		reviews:         store.Reviews(),
		timelineRepo:    memory.NewTimelineRepository(),
		outboxRepo:      memory.NewOutboxRepository(),
		idempotencyRepo: memory.NewIdempotencyRepository(),
	}
}

func postgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, fmt.Errorf("postgres storage requires a DSN")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		if version, err := store.SchemaVersion(ctx); err == nil {
			logger.WithField("schema_version", version).Info("postgres schema is up to date")
		}
	}
	logger.Info("using postgres storage")

	return &runtimeDependencies{
		orders:          postgres.NewOrderRepository(store),
		payments:        postgres.NewPaymentRepository(store),
		categories:      postgres.NewCategoryRepository(store),
		products:        postgres.NewProductRepository(store),
		coupons:         postgres.NewCouponRepository(store),
		customers:       postgres.NewCustomerRepository(store),
		admins:          postgres.NewAdministratorRepository(store),
		reviews:         postgres.NewReviewRepository(store),
		timelineRepo:    postgres.NewTimelineRepository(store),
		outboxRepo:      postgres.NewOutboxRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		storageChecker:  healthcheck.NewPingChecker("postgres", store),
		closeFn:         store.Close,
	}, nil
}

// close освобождает подключение к хранилищу.
func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
