package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ryujinbites/internal/health"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/identity"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory
	cfg.KafkaBrokers = nil
	return cfg
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, testConfig())
	require.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestBuildServices_BootstrapsAdministrator(t *testing.T) {
	ctx := context.Background()
	deps := memoryDependencies()
	cfg := testConfig()

	services, err := buildServices(ctx, cfg, deps, nil)
	require.NoError(t, err)
	require.NotNil(t, services.Orders)
	require.NotNil(t, services.Idempotency)

	_, err = services.Accounts.ListUsers(ctx, domain.NewActor("nobody", string(domain.RoleCustomer)))
	require.ErrorIs(t, err, domain.ErrForbidden)

	// Повторный запуск находит того же администратора.
	root, err := services.Accounts.Bootstrap(ctx, identity.BootstrapInput{Email: cfg.Bootstrap.Email, Password: cfg.Bootstrap.Password})
	require.NoError(t, err)
	assert.Equal(t, cfg.Bootstrap.Name, root.Name)
	assert.True(t, root.HasRole(domain.RoleAdministrator))

	_, err = deps.admins.Get(ctx, root.ID)
	require.NoError(t, err)
	_, err = deps.customers.Get(ctx, root.ID)
	require.NoError(t, err)
}

func TestOpsMux_Endpoints(t *testing.T) {
	deps := memoryDependencies()
	cfg := testConfig()
	cfg.OutboxMaxPending = 1
	mux := opsMux(newHealthHandler(cfg, deps))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/metrics").Code)
	assert.Equal(t, http.StatusOK, get("/livez").Code)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	rec := get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthcheck.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthcheck.StatusHealthy, resp.Status)
	assert.Contains(t, resp.Checks, "outbox")

	// Очередь выше порога: degraded, но readiness не падает.
	for i := 0; i < 2; i++ {
		_, err := deps.outboxRepo.Enqueue(context.Background(), domain.OutboxMessage{
			AggregateType: domain.AggregateOrder,
			AggregateID:   "1",
			EventType:     domain.EventOrderCreated,
			Payload:       []byte(`{}`),
		})
		require.NoError(t, err)
	}
	rec = get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthcheck.StatusDegraded, resp.Status)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)
}
