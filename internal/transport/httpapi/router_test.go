package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/catalog"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/coupon"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/identity"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/order"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/outbox"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/review"
	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/memory"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// caller - заголовки шлюза идентичности для тестового запроса.
type caller struct {
	id    string
	roles []domain.Role
}

var anonymous = caller{}

func (c caller) apply(req *http.Request) {
	if c.id == "" {
		return
	}
	req.Header.Set(HeaderUserID, c.id)
	roles := make([]string, 0, len(c.roles))
	for _, role := range c.roles {
		roles = append(roles, string(role))
	}
	req.Header.Set(HeaderUserRoles, strings.Join(roles, ","))
}

type testAPI struct {
	t       *testing.T
	router  *gin.Engine
	store   *memory.Store
	outbox  *memory.OutboxRepository
	metrics *metrics.Metrics
	admin   caller
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	entry := logger.WithField("component", "httpapi-test")

	store := memory.NewStore()
	outboxRepo := memory.NewOutboxRepository()
	recorder := outbox.NewRecorder(outboxRepo, entry)
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	clock := func() time.Time { return testNow }

	accounts := identity.NewAccounts(
		identity.NewMemoryProvider(identity.WithBcryptCost(bcrypt.MinCost)),
		store.Customers(), store.Administrators(), entry,
	)
	root, err := accounts.Bootstrap(context.Background(), identity.BootstrapInput{Email: "admin@ryujinbites.com", Password: "Admin@123"})
	require.NoError(t, err)

	services := Services{
		Orders: order.NewService(order.Repositories{
			Orders:    store.Orders(),
			Payments:  store.Payments(),
			Products:  store.Products(),
			Coupons:   store.Coupons(),
			Customers: store.Customers(),
			Timeline:  memory.NewTimelineRepository(),
		}, order.WithLogger(entry), order.WithEvents(recorder), order.WithMetrics(m), order.WithClock(clock)),
		Reviews: review.NewService(store.Reviews(), store.Products(), store.Customers(),
			review.WithLogger(entry), review.WithEvents(recorder), review.WithMetrics(m), review.WithClock(clock)),
		Catalog:     catalog.NewService(store.Categories(), store.Products(), entry),
		Coupons:     coupon.NewService(store.Coupons(), entry),
		Accounts:    accounts,
		Idempotency: idempotency.NewGuard(memory.NewIdempotencyRepository(), time.Hour, entry),
	}

	router := NewRouter(services, Config{}, WithLogger(entry), WithMetrics(m), WithClock(clock))
	return &testAPI{
		t:       t,
		router:  router,
		store:   store,
		outbox:  outboxRepo,
		metrics: m,
		admin:   caller{id: root.ID, roles: []domain.Role{domain.RoleAdministrator, domain.RoleCustomer}},
	}
}

func (a *testAPI) do(method, path string, who caller, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	who.apply(req)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// register заводит клиента через публичную регистрацию.
func (a *testAPI) register(name, email string) caller {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/register", anonymous, map[string]any{
		"name": name, "email": email, "password": "segredo1",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[userResponse](a.t, rec)
	return caller{id: user.ID, roles: []domain.Role{domain.RoleCustomer}}
}

// seedProduct создаёт категорию и товар от имени администратора.
func (a *testAPI) seedProduct(name, price string) productResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/categories", a.admin, map[string]any{"name": "Cat " + name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	category := decode[categoryResponse](a.t, rec)

	rec = a.do(http.MethodPost, "/products", a.admin, map[string]any{
		"name": name, "price": price, "available": true, "category_id": category.ID,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[productResponse](a.t, rec)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	customer := api.register("Alice", "alice@example.com")
	product := api.seedProduct("Gyoza", "18.00")

	tests := []struct {
		name   string
		method string
		path   string
		who    caller
		body   any
		status int
		field  string
	}{
		{name: "anonymous order", method: http.MethodPost, path: "/orders", who: anonymous,
			body: map[string]any{"delivery_type": "Retirada", "items": []map[string]any{{"product_id": product.ID, "quantity": 1}}},
			status: http.StatusUnauthorized},
		{name: "customer lists all orders", method: http.MethodGet, path: "/orders", who: customer, status: http.StatusForbidden},
		{name: "missing order", method: http.MethodGet, path: "/orders/999", who: api.admin, status: http.StatusNotFound},
		{name: "non numeric id", method: http.MethodGet, path: "/orders/abc", who: api.admin, status: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/orders", who: customer, body: "{", status: http.StatusBadRequest},
		{name: "empty body", method: http.MethodPost, path: "/categories", who: api.admin, status: http.StatusBadRequest},
		{name: "missing items", method: http.MethodPost, path: "/orders", who: customer,
			body: map[string]any{"delivery_type": "Retirada"}, status: http.StatusUnprocessableEntity, field: "items"},
		{name: "zero quantity", method: http.MethodPost, path: "/orders", who: customer,
			body:   map[string]any{"delivery_type": "Retirada", "items": []map[string]any{{"product_id": product.ID, "quantity": 0}}},
			status: http.StatusUnprocessableEntity, field: "items[0].quantity"},
		{name: "quantity above limit", method: http.MethodPost, path: "/orders", who: customer,
			body:   map[string]any{"delivery_type": "Retirada", "items": []map[string]any{{"product_id": product.ID, "quantity": 1001}}},
			status: http.StatusUnprocessableEntity, field: "items[0].quantity"},
		{name: "price above money column", method: http.MethodPost, path: "/products", who: api.admin,
			body:   map[string]any{"name": "Ouro", "price": "100000000.00", "category_id": product.CategoryID},
			status: http.StatusUnprocessableEntity, field: "price"},
		{name: "delivery without address", method: http.MethodPost, path: "/orders", who: customer,
			body:   map[string]any{"delivery_type": "Entrega", "items": []map[string]any{{"product_id": product.ID, "quantity": 1}}},
			status: http.StatusUnprocessableEntity, field: "delivery_address"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", who: customer, status: http.StatusNotFound},
		{name: "method not allowed", method: http.MethodPatch, path: "/categories", who: api.admin, status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.who, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decode[errorResponse](t, rec)
			assert.NotEmpty(t, body.Error)
			if tt.field != "" {
				assert.Contains(t, body.Fields, tt.field)
			}
		})
	}
}

func TestDuplicateEmailIsConflict(t *testing.T) {
	api := newTestAPI(t)
	api.register("Alice", "alice@example.com")

	rec := api.do(http.MethodPost, "/register", anonymous, map[string]any{
		"name": "Other", "email": "ALICE@example.com", "password": "segredo1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIdempotentOrderCreation(t *testing.T) {
	api := newTestAPI(t)
	customer := api.register("Alice", "alice@example.com")
	product := api.seedProduct("Ramen", "32.50")
	body := map[string]any{
		"delivery_type": "Retirada",
		"items":         []map[string]any{{"product_id": product.ID, "quantity": 2}},
	}

	first := api.do(http.MethodPost, "/orders", customer, body, HeaderIdempotencyKey, "order-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Empty(t, first.Header().Get(HeaderReplayed))

	second := api.do(http.MethodPost, "/orders", customer, body, HeaderIdempotencyKey, "order-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// Тот же ключ с другим телом - конфликт.
	body["notes"] = "sem cebola"
	changed := api.do(http.MethodPost, "/orders", customer, body, HeaderIdempotencyKey, "order-1")
	assert.Equal(t, http.StatusConflict, changed.Code)

	rec := api.do(http.MethodGet, "/orders", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orderResponse](t, rec), 1)

	// Без ключа запрос выполняется каждый раз.
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/orders", customer, body).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/orders", customer, body).Code)
	rec = api.do(http.MethodGet, "/orders", api.admin, nil)
	assert.Len(t, decode[[]orderResponse](t, rec), 3)
}

func TestIdempotencyKeysBelongToCustomer(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register("Alice", "alice@example.com")
	bob := api.register("Bob", "bob@example.com")
	product := api.seedProduct("Udon", "21.00")

	aliceBody := map[string]any{"delivery_type": "Retirada", "items": []map[string]any{{"product_id": product.ID, "quantity": 1}}}
	bobBody := map[string]any{"delivery_type": "Retirada", "items": []map[string]any{{"product_id": product.ID, "quantity": 3}}}

	first := api.do(http.MethodPost, "/orders", alice, aliceBody, HeaderIdempotencyKey, "checkout-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := api.do(http.MethodPost, "/orders", bob, bobBody, HeaderIdempotencyKey, "checkout-1")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Empty(t, second.Header().Get(HeaderReplayed))
	assert.Equal(t, bob.id, decode[orderResponse](t, second).CustomerID)

	rec := api.do(http.MethodGet, "/orders", api.admin, nil)
	assert.Len(t, decode[[]orderResponse](t, rec), 2)
}

func TestIdempotentFailureIsReplayed(t *testing.T) {
	api := newTestAPI(t)
	customer := api.register("Alice", "alice@example.com")
	body := map[string]any{
		"delivery_type": "Retirada",
		"items":         []map[string]any{{"product_id": 404, "quantity": 1}},
	}

	first := api.do(http.MethodPost, "/orders", customer, body, HeaderIdempotencyKey, "bad-order")
	require.GreaterOrEqual(t, first.Code, http.StatusBadRequest)

	second := api.do(http.MethodPost, "/orders", customer, body, HeaderIdempotencyKey, "bad-order")
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
}

func TestCouponCheckIsPublic(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/coupons", api.admin, map[string]any{
		"code":           "RYU10",
		"discount_type":  "Percentual",
		"discount_value": "10",
		"starts_at":      "2026-01-01T00:00:00Z",
		"ends_at":        "2026-12-31T23:59:00Z",
		"active":         true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/coupons/check/RYU10", anonymous, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	check := decode[couponCheckResponse](t, rec)
	assert.True(t, check.Applicable)
	assert.Equal(t, "10.00", check.Coupon.DiscountValue)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/coupons/check/NOPE", anonymous, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/coupons", anonymous, nil).Code)
}

func TestCatalogIsPublicForReads(t *testing.T) {
	api := newTestAPI(t)
	product := api.seedProduct("Mochi", "9.90")

	rec := api.do(http.MethodGet, "/products", anonymous, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]productResponse](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "9.90", products[0].Price)

	customer := api.register("Alice", "alice@example.com")
	rec = api.do(http.MethodPut, "/products/"+itoa(product.ID), customer, map[string]any{
		"name": "Mochi", "price": "1.00", "category_id": product.CategoryID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://app.ryujinbites.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", HeaderIdempotencyKey)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
