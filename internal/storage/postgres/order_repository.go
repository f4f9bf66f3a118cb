package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const orderColumns = `id, customer_id, status, total, delivery_type, delivery_address, notes,
		coupon_id, version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.Version = 1

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if order.CouponID != nil {
			if err := checkCouponUsageTx(ctx, tx, *order.CouponID); err != nil {
				return err
			}
		}

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (
				customer_id, status, total, delivery_type, delivery_address, notes,
				coupon_id, version, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING id
		`,
			order.CustomerID, string(order.Status), order.Total, string(order.DeliveryType),
			order.DeliveryAddress, order.Notes, nullInt64(order.CouponID), order.Version,
			order.CreatedAt, order.UpdatedAt,
		).Scan(&order.ID); err != nil {
			return mapWriteError("insert order", err)
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			item := order.Items[i]
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				VALUES ($1,$2,$3,$4)
			`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
				if isUniqueViolation(err) {
					return domain.NewValidationError("items", fmt.Sprintf("product %d appears more than once", item.ProductID))
				}
				return mapWriteError("insert order item", err)
			}
		}

		if order.Payment != nil {
			order.Payment.OrderID = order.ID
			payment, err := insertPaymentTx(ctx, tx, *order.Payment)
			if err != nil {
				return err
			}
			order.Payment = &payment
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// checkCouponUsageTx блокирует строку купона и проверяет лимит использований.
func checkCouponUsageTx(ctx context.Context, tx *sql.Tx, couponID int64) error {
	var maxUses sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT max_uses FROM coupons WHERE id = $1 FOR UPDATE`, couponID).Scan(&maxUses)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCouponNotFound
		}
		return fmt.Errorf("lock coupon: %w", err)
	}
	if !maxUses.Valid {
		return nil
	}

	var uses int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE coupon_id = $1`, couponID).Scan(&uses); err != nil {
		return fmt.Errorf("count coupon uses: %w", err)
	}
	if uses >= maxUses.Int64 {
		return domain.ErrCouponExhausted
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadDetails(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`, customerID)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadDetails(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET customer_id = $1,
			    status = $2,
			    delivery_type = $3,
			    delivery_address = $4,
			    notes = $5,
			    version = version + 1,
			    updated_at = $6
			WHERE id = $7
			  AND version = $8
		`,
			order.CustomerID, string(order.Status), string(order.DeliveryType),
			order.DeliveryAddress, order.Notes, time.Now().UTC(), order.ID, order.Version,
		)
		if err != nil {
			return mapWriteError("update order", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return versionConflictTx(ctx, tx, "order", "orders", order.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return r.Get(ctx, order.ID)
}

// Delete удаляет заказ, его позиции и платёж в одной транзакции.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("delete order payment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrOrderNotFound
		}
		return nil
	})
}

func (r *orderRepository) loadDetails(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id ASC
	`, order.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}
	order.Items = items

	payment, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, order.ID))
	switch {
	case err == nil:
		order.Payment = &payment
	case errors.Is(err, sql.ErrNoRows):
		order.Payment = nil
	default:
		return fmt.Errorf("load order payment: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order        domain.Order
		status       string
		deliveryType string
		couponID     sql.NullInt64
	)
	if err := row.Scan(
		&order.ID, &order.CustomerID, &status, &order.Total, &deliveryType,
		&order.DeliveryAddress, &order.Notes, &couponID, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.DeliveryType = domain.DeliveryType(deliveryType)
	if couponID.Valid {
		id := couponID.Int64
		order.CouponID = &id
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

// versionConflictTx различает удалённую строку и устаревшую версию.
func versionConflictTx(ctx context.Context, tx *sql.Tx, entity, table string, id int64) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s exists: %w", entity, err)
	}
	if !exists {
		return &domain.ConflictError{Entity: entity, ID: id, Reason: domain.ConflictDeleted}
	}
	return &domain.ConflictError{Entity: entity, ID: id, Reason: domain.ConflictStale}
}

// mapWriteError переводит нарушения ограничений в доменные ошибки.
func mapWriteError(op string, err error) error {
	if mapped := foreignKeyError(err); mapped != nil {
		return mapped
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ domain.OrderRepository = (*orderRepository)(nil)
