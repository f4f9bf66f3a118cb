package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DiscountType - тип скидки купона.
type DiscountType string

const (
	DiscountPercentage DiscountType = "Percentual"
	DiscountFixed      DiscountType = "Fixo"
)

// Valid проверяет тип скидки.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var hundred = decimal.NewFromInt(100)

// Coupon описывает скидочный купон.
type Coupon struct {
	ID            int64
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	// MaxUses == nil означает отсутствие лимита.
	MaxUses *int
}

// Validate проверяет поля купона.
func (c *Coupon) Validate() error {
	v := &ValidationError{}

	code := strings.TrimSpace(c.Code)
	switch {
	case code == "":
		v.Add("code", "is required")
	case utf8.RuneCountInString(code) > 50:
		v.Add("code", "must be at most 50 characters")
	}
	if !c.DiscountType.Valid() {
		v.Add("discount_type", fmt.Sprintf("must be %q or %q", DiscountPercentage, DiscountFixed))
	}
	if !c.DiscountValue.IsPositive() {
		v.Add("discount_value", "must be greater than zero")
	} else {
		checkMoney(v, "discount_value", c.DiscountValue)
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(hundred) {
		v.Add("discount_value", "percentage must not exceed 100")
	}
	if c.StartsAt.IsZero() || c.EndsAt.IsZero() {
		v.Add("validity", "start and end are required")
	} else if c.EndsAt.Before(c.StartsAt) {
		v.Add("validity", "end must not be before start")
	}
	if c.MaxUses != nil && *c.MaxUses < 1 {
		v.Add("max_uses", "must be at least 1")
	}

	return v.OrNil()
}

// ValidAt проверяет активность и окно действия купона.
func (c *Coupon) ValidAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	return !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// Exhausted сообщает, что лимит использований достигнут.
func (c *Coupon) Exhausted(uses int) bool {
	return c.MaxUses != nil && uses >= *c.MaxUses
}

// DiscountFor возвращает сумму скидки для подытога; скидка не превышает подытог.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(hundred)
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return RoundMoney(discount)
}
