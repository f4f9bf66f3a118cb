package order

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// RecordPaymentInput - платёж, добавляемый к существующему заказу.
// Нулевая сумма означает оплату полного итога заказа.
type RecordPaymentInput struct {
	Method                string
	Amount                decimal.Decimal
	ExternalTransactionID string
}

// RecordPayment прикрепляет платёж к заказу. У заказа может быть только один платёж.
func (s *Service) RecordPayment(ctx context.Context, actor domain.Actor, orderID int64, in RecordPaymentInput) (domain.Payment, error) {
	order, err := s.loadOwned(ctx, actor, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if order.Status == domain.OrderStatusCanceled {
		return domain.Payment{}, domain.NewValidationError("order", "canceled orders cannot be paid")
	}

	payment := domain.Payment{
		OrderID:               order.ID,
		Method:                strings.TrimSpace(in.Method),
		Amount:                moneyOrDefault(in.Amount, order.Total),
		PaidAt:                s.now(),
		Status:                domain.PaymentStatusPending,
		ExternalTransactionID: strings.TrimSpace(in.ExternalTransactionID),
	}
	if err := payment.Validate(); err != nil {
		return domain.Payment{}, err
	}

	created, err := s.payments.Create(ctx, payment)
	if err != nil {
		return domain.Payment{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":   created.OrderID,
		"payment_id": created.ID,
		"method":     created.Method,
	}).Info("payment recorded")
	s.metrics.PaymentRecorded()
	s.appendTimeline(ctx, order.ID, domain.TimelinePaymentAdded, created.Method, actor.ID)
	s.events.Record(ctx, domain.AggregateOrder, order.ID, domain.EventPaymentRecorded, domain.NewPaymentEvent(created, actor.ID))
	return created, nil
}

// GetPayment возвращает платёж заказа владельцу или администратору.
func (s *Service) GetPayment(ctx context.Context, actor domain.Actor, orderID int64) (domain.Payment, error) {
	if _, err := s.loadOwned(ctx, actor, orderID); err != nil {
		return domain.Payment{}, err
	}
	return s.payments.GetByOrder(ctx, orderID)
}

// UpdatePaymentStatus меняет статус платежа (только администратор).
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor domain.Actor, orderID int64, status domain.PaymentStatus) (domain.Payment, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Payment{}, err
	}
	if !status.Valid() {
		return domain.Payment{}, domain.NewValidationError("status", "is unknown")
	}

	updated, err := s.payments.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentStatusChanged(string(status))
	s.appendTimeline(ctx, orderID, domain.TimelinePaymentUpdated, string(status), actor.ID)
	s.events.Record(ctx, domain.AggregateOrder, orderID, domain.EventPaymentStatusChanged, domain.NewPaymentEvent(updated, actor.ID))
	return updated, nil
}
