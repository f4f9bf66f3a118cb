package domain

import "time"

// Типы событий истории заказа.
const (
	TimelineOrderCreated   = "order.created"
	TimelineStatusChanged  = "order.status_changed"
	TimelineOrderEdited    = "order.edited"
	TimelinePaymentAdded   = "payment.recorded"
	TimelinePaymentUpdated = "payment.status_changed"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  int64
	Type     string
	Reason   string
	ActorID  string
	Occurred time.Time
}

// Validate проверяет, что событие привязано к заказу и имеет известный тип.
func (e TimelineEvent) Validate() error {
	v := &ValidationError{}
	if e.OrderID <= 0 {
		v.Add("order_id", "must be positive")
	}
	switch e.Type {
	case TimelineOrderCreated, TimelineStatusChanged, TimelineOrderEdited, TimelinePaymentAdded, TimelinePaymentUpdated:
	default:
		v.Add("type", "unknown timeline event type")
	}
	return v.OrNil()
}
