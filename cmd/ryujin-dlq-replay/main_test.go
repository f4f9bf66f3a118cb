package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/messaging/kafka"
)

func dlqMessage(offset int64, eventType string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Offset: offset,
		Key:    []byte("42"),
		Value:  []byte(`{"order_id":42}`),
		Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderOutboxID), Value: []byte(fmt.Sprintf("outbox-%d", offset))},
			{Key: []byte(kafka.HeaderEventType), Value: []byte(eventType)},
			{Key: []byte(kafka.HeaderAggregateType), Value: []byte(domain.AggregateOrder)},
		},
	}
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, parseBrokers(" broker-1:9092, ,broker-2:9092 "))
	assert.Empty(t, parseBrokers(""))
}

func TestReadConfig(t *testing.T) {
	noEnv := func(string) string { return "" }

	cfg, err := readConfig(flag.NewFlagSet("replay", flag.ContinueOnError), []string{
		"-brokers=broker-1:9092,broker-2:9092", "-limit=10", "-execute", "-from-newest", "-idle-timeout=3s",
	}, noEnv)
	require.NoError(t, err)
	assert.Len(t, cfg.brokers, 2)
	assert.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
	assert.Equal(t, 10, cfg.limit)
	assert.True(t, cfg.execute)
	assert.True(t, cfg.fromNewest)
	assert.Equal(t, 3*time.Second, cfg.idleTimeout)

	cfg, err = readConfig(flag.NewFlagSet("replay", flag.ContinueOnError), nil, func(key string) string {
		if key == "RYUJIN_KAFKA_BROKERS" {
			return "env-broker:9092"
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"env-broker:9092"}, cfg.brokers)
	assert.False(t, cfg.execute)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no brokers", args: nil, want: "kafka brokers are required"},
		{name: "empty topic", args: []string{"-brokers=b:9092", "-source-topic="}, want: "source-topic is required"},
		{name: "zero limit", args: []string{"-brokers=b:9092", "-limit=0"}, want: "limit must be > 0"},
		{name: "zero idle timeout", args: []string{"-brokers=b:9092", "-idle-timeout=0s"}, want: "idle-timeout must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readConfig(flag.NewFlagSet("replay", flag.ContinueOnError), tt.args, noEnv)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunReplay_DryRunDoesNotPublish(t *testing.T) {
	client := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(0, "order.created"), dlqMessage(1, "order.paid")}),
	}}
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 10, idleTimeout: 20 * time.Millisecond}

	stats, err := runReplay(context.Background(), cfg, &replayDeps{client: client, consumer: consumer})
	require.NoError(t, err)
	assert.Equal(t, replayStats{processed: 2, replayed: 2}, stats)
	require.Len(t, consumer.calls, 1)
	assert.Equal(t, int64(0), consumer.calls[0].offset)
}

func TestRunReplay_ExecutePublishesDecodedEvents(t *testing.T) {
	client := &stubOffsetClient{partitions: []int32{1, 0}, offsets: map[int32]offsetRange{
		0: {oldest: 0, newest: 2},
		1: {oldest: 5, newest: 6},
	}}
	broken := &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{}`)}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(0, "order.created"), broken}),
		1: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(5, "order.status_changed")}),
	}}
	publisher := &stubPublisher{}
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 10, execute: true, idleTimeout: 20 * time.Millisecond}

	stats, err := runReplay(context.Background(), cfg, &replayDeps{client: client, consumer: consumer, publisher: publisher})
	require.NoError(t, err)
	assert.Equal(t, replayStats{processed: 3, replayed: 2, skipped: 1}, stats)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, "order.created", publisher.events[0].EventType)
	assert.Equal(t, "42", publisher.events[0].AggregateID)
	assert.Equal(t, "order.status_changed", publisher.events[1].EventType)
}

func TestRunReplay_FromNewestRespectsLimit(t *testing.T) {
	client := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 10}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(8, "order.created"), dlqMessage(9, "order.paid")}),
	}}
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 2, fromNewest: true, idleTimeout: 20 * time.Millisecond}

	stats, err := runReplay(context.Background(), cfg, &replayDeps{client: client, consumer: consumer})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.processed)
	assert.Equal(t, int64(8), consumer.calls[0].offset)
}

func TestRunReplay_Errors(t *testing.T) {
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 1, execute: true, idleTimeout: 20 * time.Millisecond}
	client := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}

	_, err := runReplay(context.Background(), cfg, nil)
	require.Error(t, err)

	_, err = runReplay(context.Background(), cfg, &replayDeps{client: client, consumer: &stubPartitionConsumerSource{}})
	require.ErrorContains(t, err, "publisher is required")

	_, err = runReplay(context.Background(), cfg, &replayDeps{
		client:    &stubOffsetClient{partitionsErr: errors.New("metadata")},
		consumer:  &stubPartitionConsumerSource{},
		publisher: &stubPublisher{},
	})
	require.ErrorContains(t, err, "get partitions")

	_, err = runReplay(context.Background(), cfg, &replayDeps{
		client:    &stubOffsetClient{partitions: []int32{0}, offsetErr: map[int32]error{0: errors.New("offset")}},
		consumer:  &stubPartitionConsumerSource{},
		publisher: &stubPublisher{},
	})
	require.ErrorContains(t, err, "oldest offset")

	_, err = runReplay(context.Background(), cfg, &replayDeps{
		client:    client,
		consumer:  &stubPartitionConsumerSource{consumeErr: errors.New("consume")},
		publisher: &stubPublisher{},
	})
	require.ErrorContains(t, err, "consume partition")

	_, err = runReplay(context.Background(), cfg, &replayDeps{
		client: client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(0, "order.created")}),
		}},
		publisher: &stubPublisher{err: errors.New("kafka down")},
	})
	require.ErrorContains(t, err, "publish replay message")

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	_, err = runReplay(context.Background(), cfg, &replayDeps{
		client:    client,
		consumer:  &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}},
		publisher: &stubPublisher{},
	})
	require.ErrorContains(t, err, "consumer error")
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 5, idleTimeout: 20 * time.Millisecond}
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 3}}}
	open := func() *stubPartitionConsumer {
		return &stubPartitionConsumer{
			messages: make(chan *sarama.ConsumerMessage),
			errors:   make(chan *sarama.ConsumerError),
		}
	}

	idle := open()
	stats, err := processPartition(context.Background(), cfg, &replayDeps{
		client:   client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}},
	}, 0, 5)
	require.NoError(t, err)
	assert.Zero(t, stats.processed)
	assert.True(t, idle.closed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg.idleTimeout = time.Minute
	_, err = processPartition(ctx, cfg, &replayDeps{
		client:   client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: open()}},
	}, 0, 5)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_UsesDependencies(t *testing.T) {
	original := newReplayDependencies
	defer func() { newReplayDependencies = original }()

	client := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{dlqMessage(0, "order.created")}),
	}}
	newReplayDependencies = func(config) (*replayDeps, error) {
		return &replayDeps{client: client, consumer: consumer, closeFns: []func() error{client.Close, consumer.Close}}, nil
	}

	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 1, idleTimeout: 20 * time.Millisecond}
	require.NoError(t, run(context.Background(), cfg))
	assert.True(t, client.closed)
	assert.True(t, consumer.closed)

	newReplayDependencies = func(config) (*replayDeps, error) { return nil, errors.New("no kafka") }
	require.Error(t, run(context.Background(), cfg))
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &stubPartitionConsumer{messages: msgCh, errors: errCh}
}

type stubPublisher struct {
	err    error
	events []domain.OutboxMessage
}

func (s *stubPublisher) Publish(_ context.Context, event domain.OutboxMessage) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}
