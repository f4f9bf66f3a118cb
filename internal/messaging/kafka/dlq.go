package kafka

import (
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// DecodeDLQMessage восстанавливает outbox-сообщение из записи dead letter topic.
// Тип события и агрегата берутся из заголовков, идентификатор агрегата из ключа.
func DecodeDLQMessage(msg *sarama.ConsumerMessage) (domain.OutboxMessage, error) {
	if msg == nil {
		return domain.OutboxMessage{}, fmt.Errorf("dlq message is nil")
	}

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h != nil {
			headers[string(h.Key)] = string(h.Value)
		}
	}

	event := domain.OutboxMessage{
		ID:            headers[HeaderOutboxID],
		AggregateType: headers[HeaderAggregateType],
		AggregateID:   string(msg.Key),
		EventType:     headers[HeaderEventType],
		Payload:       msg.Value,
		CreatedAt:     msg.Timestamp,
	}
	if event.EventType == "" || event.AggregateType == "" {
		return domain.OutboxMessage{}, fmt.Errorf("dlq message at offset %d has no event headers", msg.Offset)
	}
	if event.AggregateID == event.ID {
		event.AggregateID = ""
	}
	return event, nil
}
