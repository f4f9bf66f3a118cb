package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const paymentColumns = `id, order_id, method, amount, paid_at, status, external_transaction_id`

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var created domain.Payment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		created, err = insertPaymentTx(ctx, tx, payment)
		return err
	})
	return created, err
}

func (r *paymentRepository) GetByOrder(ctx context.Context, orderID int64) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payment, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payment, err := scanPayment(r.db.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $1
		WHERE order_id = $2
		RETURNING `+paymentColumns, string(status), orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("update payment status: %w", err)
	}
	return payment, nil
}

func insertPaymentTx(ctx context.Context, tx *sql.Tx, payment domain.Payment) (domain.Payment, error) {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, method, amount, paid_at, status, external_transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`,
		payment.OrderID, payment.Method, payment.Amount, payment.PaidAt,
		string(payment.Status), payment.ExternalTransactionID,
	).Scan(&payment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Payment{}, domain.ErrPaymentExists
		}
		return domain.Payment{}, mapWriteError("insert payment", err)
	}
	return payment, nil
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var (
		payment domain.Payment
		status  string
	)
	if err := row.Scan(
		&payment.ID, &payment.OrderID, &payment.Method, &payment.Amount,
		&payment.PaidAt, &status, &payment.ExternalTransactionID,
	); err != nil {
		return domain.Payment{}, err
	}
	payment.Status = domain.PaymentStatus(status)
	payment.PaidAt = payment.PaidAt.UTC()
	return payment, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
