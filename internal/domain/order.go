package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending - заказ создан клиентом и ждёт обработки.
	OrderStatusPending OrderStatus = "Pendente"
	// OrderStatusPreparing - заказ готовится.
	OrderStatusPreparing OrderStatus = "EmPreparacao"
	// OrderStatusDelivered - заказ выдан/доставлен, терминальный статус.
	OrderStatusDelivered OrderStatus = "Entregue"
	// OrderStatusCanceled - заказ отменён, терминальный статус.
	OrderStatusCanceled OrderStatus = "Cancelado"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusDelivered, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// CanTransitionTo проверяет граф переходов: статус движется только вперёд
// (Pendente → EmPreparacao → Entregue, EmPreparacao можно пропустить),
// любой нетерминальный → Cancelado.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || s == next || !next.Valid() {
		return false
	}
	switch next {
	case OrderStatusCanceled:
		return true
	case OrderStatusPreparing:
		return s == OrderStatusPending
	case OrderStatusDelivered:
		return s == OrderStatusPending || s == OrderStatusPreparing
	default:
		return false
	}
}

// DeliveryType - способ получения заказа.
type DeliveryType string

const (
	DeliveryPickup   DeliveryType = "Retirada"
	DeliveryShipping DeliveryType = "Entrega"
)

// Valid проверяет, что способ доставки поддерживается.
func (d DeliveryType) Valid() bool {
	return d == DeliveryPickup || d == DeliveryShipping
}

const (
	maxDeliveryAddressLen = 500
	maxOrderNotesLen      = 1000
)

// OrderItem - позиция заказа. Ключ - пара (OrderID, ProductID).
type OrderItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	// UnitPrice фиксируется при создании заказа и не следует за ценой товара.
	UnitPrice decimal.Decimal
}

// Subtotal возвращает qty * unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order агрегирует заказ, его позиции и необязательный платёж.
type Order struct {
	ID              int64
	CustomerID      string
	CreatedAt       time.Time
	Status          OrderStatus
	Total           decimal.Decimal
	DeliveryType    DeliveryType
	DeliveryAddress string
	Notes           string
	CouponID        *int64
	Items           []OrderItem
	Payment         *Payment
	Version         int64
	UpdatedAt       time.Time
}

// Subtotal - сумма позиций без скидки.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// ComputeTotal пересчитывает итог заказа по позициям и купону.
func (o *Order) ComputeTotal(coupon *Coupon) decimal.Decimal {
	subtotal := o.Subtotal()
	if coupon != nil {
		subtotal = subtotal.Sub(coupon.DiscountFor(subtotal))
	}
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	return RoundMoney(subtotal)
}

// ValidateDelivery проверяет связку способа доставки и адреса.
func (o *Order) ValidateDelivery(v *ValidationError) {
	if !o.DeliveryType.Valid() {
		v.Add("delivery_type", fmt.Sprintf("must be %q or %q", DeliveryPickup, DeliveryShipping))
	}
	if o.DeliveryType == DeliveryShipping && strings.TrimSpace(o.DeliveryAddress) == "" {
		v.Add("delivery_address", "is required for delivery")
	}
	if utf8.RuneCountInString(o.DeliveryAddress) > maxDeliveryAddressLen {
		v.Add("delivery_address", fmt.Sprintf("must be at most %d characters", maxDeliveryAddressLen))
	}
	if utf8.RuneCountInString(o.Notes) > maxOrderNotesLen {
		v.Add("notes", fmt.Sprintf("must be at most %d characters", maxOrderNotesLen))
	}
}

// ValidateInvariants проверяет базовые инварианты заказа.
func (o *Order) ValidateInvariants() error {
	v := &ValidationError{}

	if strings.TrimSpace(o.CustomerID) == "" {
		v.Add("customer_id", "is required")
	}
	if !o.Status.Valid() {
		v.Add("status", "is unknown")
	}
	o.ValidateDelivery(v)

	if len(o.Items) == 0 {
		v.Add("items", "order must contain at least one item")
	}
	seen := make(map[int64]struct{}, len(o.Items))
	for idx, item := range o.Items {
		field := fmt.Sprintf("items[%d]", idx)
		checkQuantity(v, field+".quantity", item.Quantity)
		checkMoney(v, field+".unit_price", item.UnitPrice)
		if _, dup := seen[item.ProductID]; dup {
			v.Add("items", fmt.Sprintf("product %d appears more than once", item.ProductID))
		}
		seen[item.ProductID] = struct{}{}
	}
	checkMoney(v, "total", o.Total)

	return v.OrNil()
}

// MaxItemQuantity - наибольшее количество одного товара в позиции заказа.
const MaxItemQuantity = 1000

func checkQuantity(v *ValidationError, field string, quantity int) {
	switch {
	case quantity < 1:
		v.Add(field, "must be at least 1")
	case quantity > MaxItemQuantity:
		v.Add(field, fmt.Sprintf("must be at most %d", MaxItemQuantity))
	}
}

// Clone возвращает глубокую копию заказа, чтобы хранилища не делили срезы с вызывающим кодом.
func (o Order) Clone() Order {
	out := o
	if o.CouponID != nil {
		id := *o.CouponID
		out.CouponID = &id
	}
	out.Items = append([]OrderItem(nil), o.Items...)
	if o.Payment != nil {
		p := *o.Payment
		out.Payment = &p
	}
	return out
}
