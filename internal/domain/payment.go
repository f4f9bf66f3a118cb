package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// PaymentStatus описывает состояние платежа.
type PaymentStatus string

const (
	// PaymentStatusPending - платёж зарегистрирован, но не подтверждён.
	PaymentStatusPending PaymentStatus = "Pendente"
	// PaymentStatusApproved - платёж подтверждён.
	PaymentStatusApproved PaymentStatus = "Aprovado"
	// PaymentStatusRejected - платёж отклонён.
	PaymentStatusRejected PaymentStatus = "Rejeitado"
)

// Valid проверяет статус платежа.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return true
	default:
		return false
	}
}

// Payment описывает платёж, связанный с заказом (один-к-одному).
type Payment struct {
	ID      int64
	OrderID int64
	Method  string
	Amount  decimal.Decimal
	PaidAt  time.Time
	Status  PaymentStatus
	// ExternalTransactionID может быть пустым для оплаты наличными.
	ExternalTransactionID string
}

// Validate проверяет корректность полей платежа.
func (p *Payment) Validate() error {
	v := &ValidationError{}

	method := strings.TrimSpace(p.Method)
	switch {
	case method == "":
		v.Add("method", "is required")
	case utf8.RuneCountInString(method) > 50:
		v.Add("method", "must be at most 50 characters")
	}
	checkMoney(v, "amount", p.Amount)
	if !p.Status.Valid() {
		v.Add("status", "is unknown")
	}
	if utf8.RuneCountInString(p.ExternalTransactionID) > 100 {
		v.Add("external_transaction_id", "must be at most 100 characters")
	}

	return v.OrNil()
}
