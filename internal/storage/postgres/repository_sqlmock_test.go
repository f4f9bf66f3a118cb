package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStore(db), mock
}

func sampleOrder() domain.Order {
	return domain.Order{
		CustomerID:   "c-1",
		Status:       domain.OrderStatusPending,
		DeliveryType: domain.DeliveryPickup,
		Total:        decimal.RequireFromString("15.00"),
		Items:        []domain.OrderItem{{ProductID: 7, Quantity: 2, UnitPrice: decimal.RequireFromString("7.50")}},
	}
}

func TestOrderRepository_CreateWritesOrderAndItems(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("c-1", "Pendente", sqlmock.AnyArg(), "Retirada", "", "", sqlmock.AnyArg(), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(42), int64(7), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := NewOrderRepository(store).Create(context.Background(), sampleOrder())
	require.NoError(t, err)
	require.Equal(t, int64(42), created.ID)
	require.Equal(t, int64(42), created.Items[0].OrderID)
	require.Equal(t, int64(1), created.Version)
	require.Nil(t, created.Payment)
}

func TestOrderRepository_CreateRejectsExhaustedCoupon(t *testing.T) {
	store, mock := newMockStore(t)
	couponID := int64(3)
	order := sampleOrder()
	order.CouponID = &couponID

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT max_uses FROM coupons WHERE id = \$1 FOR UPDATE`).
		WithArgs(couponID).
		WillReturnRows(sqlmock.NewRows([]string{"max_uses"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE coupon_id = \$1`).
		WithArgs(couponID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectRollback()

	_, err := NewOrderRepository(store).Create(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrCouponExhausted)
}

func TestOrderRepository_CreateMapsForeignKeyViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "orders_customer_id_fkey"})
	mock.ExpectRollback()

	_, err := NewOrderRepository(store).Create(context.Background(), sampleOrder())
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestOrderRepository_SaveDistinguishesConflicts(t *testing.T) {
	cases := []struct {
		name   string
		exists bool
		check  func(error) bool
	}{
		{name: "stale version", exists: true, check: domain.IsVersionConflict},
		{name: "deleted row", exists: false, check: domain.IsDeletedConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			order := sampleOrder()
			order.ID = 5
			order.Version = 2

			mock.ExpectBegin()
			mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM orders WHERE id = \$1\)`).
				WithArgs(int64(5)).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tc.exists))
			mock.ExpectRollback()

			_, err := NewOrderRepository(store).Save(context.Background(), order)
			require.ErrorIs(t, err, domain.ErrConflict)
			require.True(t, tc.check(err))
		})
	}
}

func TestOrderRepository_GetLoadsItemsAndPayment(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery("FROM orders WHERE id = ").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "status", "total", "delivery_type", "delivery_address", "notes",
			"coupon_id", "version", "created_at", "updated_at",
		}).AddRow(int64(9), "c-1", "EmPreparacao", "12.50", "Entrega", "Rua A, 1", "", int64(3), int64(4), now, now))
	mock.ExpectQuery("FROM order_items").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "quantity", "unit_price"}).
			AddRow(int64(9), int64(7), int64(1), "12.50"))
	mock.ExpectQuery("FROM payments WHERE order_id").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	order, err := NewOrderRepository(store).Get(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPreparing, order.Status)
	require.Equal(t, domain.DeliveryShipping, order.DeliveryType)
	require.True(t, order.Total.Equal(decimal.RequireFromString("12.50")))
	require.Equal(t, int64(3), *order.CouponID)
	require.Len(t, order.Items, 1)
	require.Nil(t, order.Payment)
}

func TestOrderRepository_DeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM payments WHERE order_id").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM order_items WHERE order_id").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM orders WHERE id").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewOrderRepository(store).Delete(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestPaymentRepository_DuplicateIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO payments").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "payments_order_id_key"})
	mock.ExpectRollback()

	_, err := NewPaymentRepository(store).Create(context.Background(), domain.Payment{OrderID: 1, Method: "Pix"})
	require.ErrorIs(t, err, domain.ErrPaymentExists)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCouponRepository_DeleteDetachesOrders(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET coupon_id = NULL WHERE coupon_id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM coupons").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewCouponRepository(store).Delete(context.Background(), 4))
}

func TestCategoryRepository_DeleteRestrictedByProducts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := NewCategoryRepository(store).Delete(context.Background(), 2)
	require.ErrorIs(t, err, domain.ErrCategoryInUse)
}

func TestProductRepository_DeleteCascadesReviews(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM order_items WHERE product_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("DELETE FROM reviews WHERE product_id").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM products WHERE id").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewProductRepository(store).Delete(context.Background(), 7))
}

func TestCustomerRepository_DeleteCascades(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	for _, table := range []string{"payments", "order_items", "orders", "reviews"} {
		mock.ExpectExec("DELETE FROM " + table).
			WithArgs("c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("DELETE FROM customers").
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewCustomerRepository(store).Delete(context.Background(), "c-1"))
}

func TestReviewRepository_SaveOnDeletedRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE reviews").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "product_id", "customer_id", "score", "comment", "created_at", "reported", "status", "version",
		}))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM reviews WHERE id = \$1\)`).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := NewReviewRepository(store).Save(context.Background(), domain.Review{ID: 11, Version: 1, Status: domain.ModerationPending})
	require.True(t, domain.IsDeletedConflict(err))
}

func TestForeignKeyErrorFallback(t *testing.T) {
	require.Nil(t, foreignKeyError(sql.ErrConnDone))
	require.ErrorIs(t, foreignKeyError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "unknown"}), domain.ErrNotFound)
}

func idempotencyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"actor_id", "key", "request_hash", "status", "response_body", "http_status", "ttl_at", "created_at", "updated_at",
	})
}

func TestIdempotencyRepository_ReserveLiveKeyOfSameActor(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	scope := domain.IdempotencyScope{ActorID: "alice", Key: "order-1"}

	// Живая запись не перезаписывается: INSERT ... ON CONFLICT не возвращает строк.
	mock.ExpectQuery("INSERT INTO idempotency_keys").
		WithArgs("alice", "order-1", "hash-2", "processing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(idempotencyRows())
	mock.ExpectQuery("SELECT actor_id, key, request_hash").
		WithArgs("alice", "order-1").
		WillReturnRows(idempotencyRows().AddRow("alice", "order-1", "hash-1", "done", []byte(`{"id":1}`), int64(201), now.Add(time.Hour), now, now))

	existing, err := NewIdempotencyRepository(store).Reserve(context.Background(), scope, "hash-2", now.Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
	require.Equal(t, scope, existing.Scope)
	require.Equal(t, 201, existing.Outcome.HTTPStatus)
}

func TestIdempotencyRepository_ReserveInsertsOrReclaims(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO idempotency_keys").
		WithArgs("bob", "order-1", "hash-1", "processing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(idempotencyRows().AddRow("bob", "order-1", "hash-1", "processing", nil, nil, now.Add(time.Hour), now, now))

	record, err := NewIdempotencyRepository(store).Reserve(context.Background(), domain.IdempotencyScope{ActorID: "bob", Key: "order-1"}, "hash-1", now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, record.Status)
	require.Zero(t, record.Outcome.HTTPStatus)
}

func TestIdempotencyRepository_CompleteOnlyOnce(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	scope := domain.IdempotencyScope{ActorID: "alice", Key: "pay-1"}

	mock.ExpectExec("UPDATE idempotency_keys").
		WithArgs("failed", sqlmock.AnyArg(), int64(502), sqlmock.AnyArg(), "alice", "pay-1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT actor_id, key, request_hash").
		WithArgs("alice", "pay-1").
		WillReturnRows(idempotencyRows().AddRow("alice", "pay-1", "hash", "done", []byte(`{}`), int64(201), now, now, now))

	err := NewIdempotencyRepository(store).Complete(context.Background(), scope, domain.IdempotencyOutcome{HTTPStatus: 502})
	require.ErrorIs(t, err, domain.ErrIdempotencyCompleted)
}

func TestIdempotencyRepository_DeleteExpiredBatch(t *testing.T) {
	store, mock := newMockStore(t)
	before := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM idempotency_keys\s+WHERE \(actor_id, key\) IN`).
		WithArgs(before, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := NewIdempotencyRepository(store).DeleteExpired(context.Background(), before, 100)
	require.NoError(t, err)
	require.Equal(t, 3, deleted)
}

func TestTimelineRepository_AppendAndList(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewTimelineRepository(store)
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	require.ErrorIs(t, repo.Append(context.Background(), domain.TimelineEvent{OrderID: 5, Type: "order.teleported"}), domain.ErrValidation)

	mock.ExpectExec("INSERT INTO timeline_events").
		WithArgs(int64(5), domain.TimelineOrderCreated, "Pendente", "alice", at).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "timeline_events_order_id_fkey"})
	err := repo.Append(context.Background(), domain.TimelineEvent{OrderID: 5, Type: domain.TimelineOrderCreated, Reason: "Pendente", ActorID: "alice", Occurred: at})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	mock.ExpectQuery("SELECT type, reason, actor_id, occurred").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"type", "reason", "actor_id", "occurred"}).
			AddRow(domain.TimelineOrderCreated, "Pendente", "alice", at))
	history, err := repo.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, int64(5), history[0].OrderID)
}
