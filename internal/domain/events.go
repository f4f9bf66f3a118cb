package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent - payload события order.created.
type OrderCreatedEvent struct {
	OrderID      int64            `json:"order_id"`
	CustomerID   string           `json:"customer_id"`
	Status       OrderStatus      `json:"status"`
	DeliveryType DeliveryType     `json:"delivery_type"`
	Total        decimal.Decimal  `json:"total"`
	CouponID     *int64           `json:"coupon_id,omitempty"`
	Items        []OrderItemEvent `json:"items"`
	CreatedAt    time.Time        `json:"created_at"`
}

// OrderItemEvent - позиция заказа внутри события.
type OrderItemEvent struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderCreatedEvent собирает payload из сохранённого заказа.
func NewOrderCreatedEvent(order Order) OrderCreatedEvent {
	items := make([]OrderItemEvent, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemEvent{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return OrderCreatedEvent{
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		Status:       order.Status,
		DeliveryType: order.DeliveryType,
		Total:        order.Total,
		CouponID:     order.CouponID,
		Items:        items,
		CreatedAt:    order.CreatedAt,
	}
}

// OrderStatusChangedEvent - payload события order.status_changed.
type OrderStatusChangedEvent struct {
	OrderID    int64       `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	ActorID    string      `json:"actor_id"`
	ChangedAt  time.Time   `json:"changed_at"`
}

// OrderDeletedEvent - payload события order.deleted.
type OrderDeletedEvent struct {
	OrderID   int64     `json:"order_id"`
	ActorID   string    `json:"actor_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// PaymentEvent - payload событий payment.recorded и payment.status_changed.
type PaymentEvent struct {
	OrderID   int64           `json:"order_id"`
	PaymentID int64           `json:"payment_id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PaymentStatus   `json:"status"`
	ActorID   string          `json:"actor_id"`
}

// NewPaymentEvent собирает payload платежа.
func NewPaymentEvent(payment Payment, actorID string) PaymentEvent {
	return PaymentEvent{
		OrderID:   payment.OrderID,
		PaymentID: payment.ID,
		Method:    payment.Method,
		Amount:    payment.Amount,
		Status:    payment.Status,
		ActorID:   actorID,
	}
}

// ReviewModerationEvent - payload событий review.reported и review.resolved.
type ReviewModerationEvent struct {
	ReviewID   int64         `json:"review_id"`
	ProductID  int64         `json:"product_id"`
	AuthorID   string        `json:"author_id"`
	ActorID    string        `json:"actor_id"`
	Action     ResolveAction `json:"action,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
