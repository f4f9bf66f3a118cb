package domain

import (
	"context"
	"time"
)

// Агрегаты, для которых пишутся события outbox.
const (
	AggregateOrder  = "order"
	AggregateReview = "review"
)

// Типы доменных событий.
const (
	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventOrderDeleted         = "order.deleted"
	EventPaymentRecorded      = "payment.recorded"
	EventPaymentStatusChanged = "payment.status_changed"
	EventReviewReported       = "review.reported"
	EventReviewResolved       = "review.resolved"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
