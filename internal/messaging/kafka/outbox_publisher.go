package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// OutboxPublisher публикует outbox-сообщения, выбирая topic по типу агрегата.
type OutboxPublisher struct {
	producer *Producer
	route    func(aggregateType string) string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer) *OutboxPublisher {
	return &OutboxPublisher{producer: producer, route: TopicFor}
}

type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PublishedAt   time.Time       `json:"published_at"`
}

// Publish отправляет событие; ключ сообщения - идентификатор агрегата, чтобы события
// одного заказа попадали в одну партицию по порядку.
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	envelope := outboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		OccurredAt:    event.CreatedAt,
		PublishedAt:   time.Now().UTC(),
	}
	if !json.Valid(event.Payload) {
		envelope.Payload = nil
	}

	return p.producer.PublishEvent(ctx, p.route(event.AggregateType), messageKey(event), envelope, eventHeaders(event))
}

// DLQPublisher пересылает в dead letter topic события, которые не удалось опубликовать.
// Тело сообщения уже содержит описание ошибки и передаётся как есть.
type DLQPublisher struct {
	producer *Producer
	topic    string
}

// NewDLQPublisher создаёт паблишер для topic ryujin.dlq.
func NewDLQPublisher(producer *Producer) *DLQPublisher {
	return &DLQPublisher{producer: producer, topic: TopicDeadLetterQueue}
}

// Publish отправляет сообщение в DLQ.
func (p *DLQPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}
	headers := eventHeaders(event)
	headers[HeaderOriginalTopic] = TopicFor(event.AggregateType)
	return p.producer.Send(ctx, p.topic, messageKey(event), event.Payload, headers)
}

func messageKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}

func eventHeaders(event domain.OutboxMessage) map[string]string {
	return map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
		HeaderOutboxID:      event.ID,
	}
}

var (
	_ domain.OutboxPublisher = (*OutboxPublisher)(nil)
	_ domain.OutboxPublisher = (*DLQPublisher)(nil)
)
