package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// ItemInput - позиция в запросе на создание заказа.
type ItemInput struct {
	ProductID int64
	Quantity  int
}

// PaymentInput - необязательный платёж, создаваемый вместе с заказом.
type PaymentInput struct {
	Method                string
	ExternalTransactionID string
}

// CreateOrderInput - данные нового заказа. Итог считается на сервере.
type CreateOrderInput struct {
	DeliveryType    domain.DeliveryType
	DeliveryAddress string
	Notes           string
	CouponID        *int64
	Items           []ItemInput
	Payment         *PaymentInput
}

// EditOrderInput - изменяемые поля шапки заказа.
// CustomerID учитывается только для администраторов.
type EditOrderInput struct {
	Version         int64
	DeliveryType    domain.DeliveryType
	DeliveryAddress string
	Notes           string
	CustomerID      string
}

// CreateOrder создаёт заказ от имени актёра.
func (s *Service) CreateOrder(ctx context.Context, actor domain.Actor, in CreateOrderInput) (domain.Order, error) {
	if err := actor.RequireAnyRole(domain.RoleCustomer, domain.RoleAdministrator); err != nil {
		return domain.Order{}, err
	}
	if _, err := s.customers.Get(ctx, actor.ID); err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	order := domain.Order{
		CustomerID:      actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		Status:          domain.OrderStatusPending,
		DeliveryType:    in.DeliveryType,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Notes:           strings.TrimSpace(in.Notes),
		CouponID:        in.CouponID,
	}
	if order.DeliveryType == domain.DeliveryPickup {
		order.DeliveryAddress = ""
	}

	coupon, err := s.applicableCoupon(ctx, in.CouponID)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := s.snapshotItems(ctx, in.Items)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	order.Total = order.ComputeTotal(coupon)

	if err := order.ValidateInvariants(); err != nil {
		return domain.Order{}, err
	}

	if in.Payment != nil {
		payment := domain.Payment{
			Method:                strings.TrimSpace(in.Payment.Method),
			Amount:                order.Total,
			PaidAt:                now,
			Status:                domain.PaymentStatusPending,
			ExternalTransactionID: strings.TrimSpace(in.Payment.ExternalTransactionID),
		}
		if err := payment.Validate(); err != nil {
			return domain.Order{}, prefixFields(err, "payment.")
		}
		order.Payment = &payment
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
		"total":       created.Total.StringFixed(2),
	}).Info("order created")
	s.metrics.OrderCreated()
	s.appendTimeline(ctx, created.ID, domain.TimelineOrderCreated, string(created.Status), actor.ID)
	s.events.Record(ctx, domain.AggregateOrder, created.ID, domain.EventOrderCreated, domain.NewOrderCreatedEvent(created))
	if created.Payment != nil {
		s.metrics.PaymentRecorded()
		s.events.Record(ctx, domain.AggregateOrder, created.ID, domain.EventPaymentRecorded, domain.NewPaymentEvent(*created.Payment, actor.ID))
	}

	return created, nil
}

// applicableCoupon проверяет, что купон существует, активен, действует сейчас и не исчерпан.
func (s *Service) applicableCoupon(ctx context.Context, couponID *int64) (*domain.Coupon, error) {
	if couponID == nil {
		return nil, nil
	}
	coupon, err := s.coupons.Get(ctx, *couponID)
	if err != nil {
		return nil, err
	}
	if !coupon.ValidAt(s.now()) {
		return nil, domain.NewValidationError("coupon_id", "coupon is inactive or outside its validity window")
	}
	uses, err := s.coupons.CountUses(ctx, coupon.ID)
	if err != nil {
		return nil, fmt.Errorf("count coupon uses: %w", err)
	}
	if coupon.Exhausted(uses) {
		return nil, domain.ErrCouponExhausted
	}
	return &coupon, nil
}

// snapshotItems фиксирует текущие цены товаров в позициях заказа.
func (s *Service) snapshotItems(ctx context.Context, inputs []ItemInput) ([]domain.OrderItem, error) {
	v := &domain.ValidationError{}
	items := make([]domain.OrderItem, 0, len(inputs))

	for idx, in := range inputs {
		field := fmt.Sprintf("items[%d]", idx)
		if in.Quantity < 1 || in.Quantity > domain.MaxItemQuantity {
			v.Add(field+".quantity", fmt.Sprintf("must be between 1 and %d", domain.MaxItemQuantity))
			continue
		}
		product, err := s.products.Get(ctx, in.ProductID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			v.Add(field+".product_id", "product does not exist")
			continue
		case err != nil:
			return nil, err
		case !product.Available:
			v.Add(field+".product_id", "product is not available")
			continue
		}
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Quantity:  in.Quantity,
			UnitPrice: domain.RoundMoney(product.Price),
		})
	}

	if !v.Empty() {
		return nil, v
	}
	return items, nil
}

// GetOrdersForCustomer возвращает заказы одного клиента, новые первыми.
func (s *Service) GetOrdersForCustomer(ctx context.Context, actor domain.Actor, customerID string) ([]domain.Order, error) {
	if actor.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if !actor.CanAct(customerID) {
		return nil, domain.ErrForbidden
	}
	return s.orders.ListByCustomer(ctx, customerID)
}

// GetAllOrders возвращает все заказы (только администратор).
func (s *Service) GetAllOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.orders.List(ctx)
}

// GetOrder возвращает заказ владельцу или администратору.
func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, id int64) (domain.Order, error) {
	return s.loadOwned(ctx, actor, id)
}

// EditOrder меняет способ получения, адрес и примечания заказа.
// Клиент может править только свой заказ в статусе Pendente; смена владельца доступна
// только администратору, для остальных поле CustomerID игнорируется.
func (s *Service) EditOrder(ctx context.Context, actor domain.Actor, id int64, in EditOrderInput) (domain.Order, error) {
	order, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.IsAdmin() && order.Status != domain.OrderStatusPending {
		return domain.Order{}, domain.ErrForbidden
	}

	if in.Version > 0 {
		order.Version = in.Version
	}
	if actor.IsAdmin() {
		customerID := strings.TrimSpace(in.CustomerID)
		if customerID != "" && customerID != order.CustomerID {
			if _, err := s.customers.Get(ctx, customerID); err != nil {
				return domain.Order{}, err
			}
			order.CustomerID = customerID
		}
	}

	order.DeliveryType = in.DeliveryType
	order.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	order.Notes = strings.TrimSpace(in.Notes)
	if order.DeliveryType == domain.DeliveryPickup {
		order.DeliveryAddress = ""
	}

	v := &domain.ValidationError{}
	order.ValidateDelivery(v)
	if err := v.OrNil(); err != nil {
		return domain.Order{}, err
	}

	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return domain.Order{}, s.trackConflict(err)
	}

	s.appendTimeline(ctx, saved.ID, domain.TimelineOrderEdited, "", actor.ID)
	return saved, nil
}

// UpdateOrderStatus переводит заказ в новый статус (только администратор).
func (s *Service) UpdateOrderStatus(ctx context.Context, actor domain.Actor, id int64, next domain.OrderStatus) (domain.Order, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Order{}, err
	}
	if !next.Valid() {
		return domain.Order{}, domain.NewValidationError("status", "is unknown")
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	prev := order.Status
	if !prev.CanTransitionTo(next) {
		return domain.Order{}, domain.NewValidationError("status", fmt.Sprintf("cannot change from %s to %s", prev, next))
	}

	order.Status = next
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return domain.Order{}, s.trackConflict(err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": saved.ID,
		"from":     prev,
		"to":       next,
		"actor_id": actor.ID,
	}).Info("order status changed")
	s.metrics.StatusTransition(string(prev), string(next))
	s.appendTimeline(ctx, saved.ID, domain.TimelineStatusChanged, fmt.Sprintf("%s -> %s", prev, next), actor.ID)
	s.events.Record(ctx, domain.AggregateOrder, saved.ID, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:    saved.ID,
		CustomerID: saved.CustomerID,
		From:       prev,
		To:         next,
		ActorID:    actor.ID,
		ChangedAt:  saved.UpdatedAt,
	})

	return saved, nil
}

// DeleteOrder удаляет заказ с позициями и платежом (только администратор).
func (s *Service) DeleteOrder(ctx context.Context, actor domain.Actor, id int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{"order_id": id, "actor_id": actor.ID}).Info("order deleted")
	s.metrics.OrderDeleted()
	s.events.Record(ctx, domain.AggregateOrder, id, domain.EventOrderDeleted, domain.OrderDeletedEvent{
		OrderID:   id,
		ActorID:   actor.ID,
		DeletedAt: s.now(),
	})
	return nil
}

// GetTimeline возвращает историю заказа.
func (s *Service) GetTimeline(ctx context.Context, actor domain.Actor, id int64) ([]domain.TimelineEvent, error) {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(ctx, id)
}

// prefixFields переносит замечания вложенной сущности под общий префикс.
func prefixFields(err error, prefix string) error {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	out := &domain.ValidationError{}
	for field, messages := range verr.Fields {
		for _, message := range messages {
			out.Add(prefix+field, message)
		}
	}
	return out
}

func moneyOrDefault(value, fallback decimal.Decimal) decimal.Decimal {
	if value.IsZero() {
		return fallback
	}
	return domain.RoundMoney(value)
}
