package memory

import (
	"context"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type paymentRepositoryInMemory struct {
	s *Store
}

// Create сохраняет платёж; у заказа может быть только один платёж.
func (r *paymentRepositoryInMemory) Create(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[payment.OrderID]; !ok {
		return domain.Payment{}, domain.ErrOrderNotFound
	}
	if _, exists := r.s.payments[payment.OrderID]; exists {
		return domain.Payment{}, domain.ErrPaymentExists
	}
	payment.ID = r.s.nextID("payments")
	r.s.payments[payment.OrderID] = payment
	return payment, nil
}

func (r *paymentRepositoryInMemory) GetByOrder(_ context.Context, orderID int64) (domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	payment, ok := r.s.payments[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *paymentRepositoryInMemory) UpdateStatus(_ context.Context, orderID int64, status domain.PaymentStatus) (domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	payment.Status = status
	r.s.payments[orderID] = payment
	return payment, nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
