package kafka

import "github.com/vladislavdragonenkov/ryujinbites/internal/domain"

// Topics для Kafka.
const (
	TopicOrderEvents     = "ryujin.order.events"
	TopicReviewEvents    = "ryujin.review.events"
	TopicDeadLetterQueue = "ryujin.dlq"
)

// Заголовки сообщений, по которым потребители фильтруют события без разбора тела.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderOriginalTopic = "x-original-topic"
)

// TopicFor выбирает topic по типу агрегата. Неизвестные агрегаты идут в topic заказов.
func TopicFor(aggregateType string) string {
	switch aggregateType {
	case domain.AggregateReview:
		return TopicReviewEvents
	default:
		return TopicOrderEvents
	}
}
