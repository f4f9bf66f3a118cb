package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/memory"
)

func TestRecorder_Record(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	rec := NewRecorder(repo, nil)

	rec.Record(context.Background(), domain.AggregateOrder, int64(7), domain.EventOrderStatusChanged, map[string]string{
		"from": "Pendente",
		"to":   "EmPreparacao",
	})

	pending, err := repo.PullPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "7", pending[0].AggregateID)
	assert.Equal(t, domain.AggregateOrder, pending[0].AggregateType)
	assert.Equal(t, domain.EventOrderStatusChanged, pending[0].EventType)
	assert.JSONEq(t, `{"from":"Pendente","to":"EmPreparacao"}`, string(pending[0].Payload))
	assert.False(t, pending[0].CreatedAt.IsZero())
}

func TestRecorder_EncodeFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	rec := NewRecorder(repo, nil)

	rec.Record(context.Background(), domain.AggregateReview, 1, domain.EventReviewReported, make(chan int))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
}

func TestRecorder_EnqueueFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(failingOutbox{}, nil)
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), domain.AggregateOrder, 1, domain.EventOrderDeleted, nil)
	})
}

func TestRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), domain.AggregateOrder, 1, domain.EventOrderCreated, nil)
	})
	assert.NotPanics(t, func() {
		NewRecorder(nil, nil).Record(context.Background(), domain.AggregateOrder, 1, domain.EventOrderCreated, nil)
	})
}

type failingOutbox struct{}

func (failingOutbox) Enqueue(context.Context, domain.OutboxMessage) (domain.OutboxMessage, error) {
	return domain.OutboxMessage{}, errors.New("disk full")
}

func (failingOutbox) PullPending(context.Context, int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (failingOutbox) Stats(context.Context) (domain.OutboxStats, error) {
	return domain.OutboxStats{}, nil
}

func (failingOutbox) MarkSent(context.Context, string) error   { return nil }
func (failingOutbox) MarkFailed(context.Context, string) error { return nil }
