package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// orderRepositoryInMemory - in-memory реализация OrderRepository поверх Store.
type orderRepositoryInMemory struct {
	s *Store
}

// Create проверяет внешние ключи и лимит купона, затем сохраняет заказ и платёж.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.customers[order.CustomerID]; !ok {
		return domain.Order{}, domain.ErrCustomerNotFound
	}
	for _, item := range order.Items {
		if _, ok := r.s.products[item.ProductID]; !ok {
			return domain.Order{}, domain.ErrProductNotFound
		}
	}
	if order.CouponID != nil {
		coupon, ok := r.s.coupons[*order.CouponID]
		if !ok {
			return domain.Order{}, domain.ErrCouponNotFound
		}
		if coupon.Exhausted(r.s.couponUsesLocked(coupon.ID)) {
			return domain.Order{}, domain.ErrCouponExhausted
		}
	}

	stored := order.Clone()
	stored.ID = r.s.nextID("orders")
	stored.Version = 1
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	for i := range stored.Items {
		stored.Items[i].OrderID = stored.ID
	}
	if stored.Payment != nil {
		payment := *stored.Payment
		payment.ID = r.s.nextID("payments")
		payment.OrderID = stored.ID
		r.s.payments[stored.ID] = payment
	}
	stored.Payment = nil
	r.s.orders[stored.ID] = stored

	return r.s.withPaymentLocked(stored), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id int64) (domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.s.withPaymentLocked(order), nil
}

// List возвращает все заказы, новые первыми.
func (r *orderRepositoryInMemory) List(_ context.Context) ([]domain.Order, error) {
	return r.filter(func(domain.Order) bool { return true }), nil
}

// ListByCustomer возвращает только заказы клиента.
func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *orderRepositoryInMemory) filter(keep func(domain.Order) bool) []domain.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.s.orders))
	for _, order := range r.s.orders {
		if keep(order) {
			result = append(result, r.s.withPaymentLocked(order))
		}
	}
	sortOrdersNewestFirst(result)
	return result
}

// Save перезаписывает шапку заказа, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(_ context.Context, order domain.Order) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.orders[order.ID]
	if !ok {
		return domain.Order{}, &domain.ConflictError{Entity: "order", ID: order.ID, Reason: domain.ConflictDeleted}
	}
	if current.Version != order.Version {
		return domain.Order{}, &domain.ConflictError{Entity: "order", ID: order.ID, Reason: domain.ConflictStale}
	}
	if _, ok := r.s.customers[order.CustomerID]; !ok {
		return domain.Order{}, domain.ErrCustomerNotFound
	}

	current.CustomerID = order.CustomerID
	current.Status = order.Status
	current.DeliveryType = order.DeliveryType
	current.DeliveryAddress = order.DeliveryAddress
	current.Notes = order.Notes
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	r.s.orders[current.ID] = current

	return r.s.withPaymentLocked(current), nil
}

// Delete удаляет заказ вместе с позициями и платежом.
func (r *orderRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	r.s.deleteOrderLocked(id)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
