package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

func consumerMessage(t *testing.T, produced *sarama.ProducerMessage) *sarama.ConsumerMessage {
	t.Helper()
	key, err := produced.Key.Encode()
	require.NoError(t, err)
	value, err := produced.Value.Encode()
	require.NoError(t, err)

	msg := &sarama.ConsumerMessage{Topic: produced.Topic, Key: key, Value: value, Timestamp: produced.Timestamp}
	for i := range produced.Headers {
		h := produced.Headers[i]
		msg.Headers = append(msg.Headers, &h)
	}
	return msg
}

func TestDecodeDLQMessage_RoundTripThroughDLQPublisher(t *testing.T) {
	producer, mock := newMockProducer(t)
	var captured *sarama.ProducerMessage
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		captured = msg
		return nil
	})

	original := domain.OutboxMessage{
		ID:            "outbox-9",
		AggregateType: domain.AggregateReview,
		AggregateID:   "15",
		EventType:     "review.reported",
		Payload:       []byte(`{"review_id":15}`),
	}
	require.NoError(t, NewDLQPublisher(producer).Publish(context.Background(), original))
	require.NotNil(t, captured)

	event, err := DecodeDLQMessage(consumerMessage(t, captured))
	require.NoError(t, err)
	assert.Equal(t, original.ID, event.ID)
	assert.Equal(t, original.AggregateType, event.AggregateType)
	assert.Equal(t, original.AggregateID, event.AggregateID)
	assert.Equal(t, original.EventType, event.EventType)
	assert.JSONEq(t, string(original.Payload), string(event.Payload))
}

func TestDecodeDLQMessage_KeyFallbackIsNotAggregate(t *testing.T) {
	msg := &sarama.ConsumerMessage{
		Key:       []byte("outbox-1"),
		Value:     []byte(`{}`),
		Timestamp: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(HeaderOutboxID), Value: []byte("outbox-1")},
			{Key: []byte(HeaderEventType), Value: []byte("order.created")},
			{Key: []byte(HeaderAggregateType), Value: []byte(domain.AggregateOrder)},
		},
	}

	event, err := DecodeDLQMessage(msg)
	require.NoError(t, err)
	assert.Empty(t, event.AggregateID)
	assert.Equal(t, msg.Timestamp, event.CreatedAt)
}

func TestDecodeDLQMessage_Invalid(t *testing.T) {
	_, err := DecodeDLQMessage(nil)
	require.Error(t, err)

	_, err = DecodeDLQMessage(&sarama.ConsumerMessage{Value: []byte(`{}`)})
	require.Error(t, err)
}

