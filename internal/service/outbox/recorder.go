package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// Recorder кладёт доменные события в outbox.
// Ошибка записи события не отменяет уже выполненную операцию, она только логируется.
type Recorder struct {
	repo   domain.OutboxRepository
	logger *log.Entry
	now    func() time.Time
}

// NewRecorder создаёт Recorder. Если repo == nil, события отбрасываются.
func NewRecorder(repo domain.OutboxRepository, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "outbox-recorder")
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record сериализует payload в JSON и сохраняет событие.
func (r *Recorder) Record(ctx context.Context, aggregateType string, aggregateID any, eventType string, payload any) {
	if r == nil || r.repo == nil {
		return
	}

	entry := r.logger.WithFields(log.Fields{
		"aggregate_type": aggregateType,
		"aggregate_id":   aggregateID,
		"event_type":     eventType,
	})

	body, err := json.Marshal(payload)
	if err != nil {
		entry.WithError(err).Error("failed to encode outbox payload")
		return
	}

	_, err = r.repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   fmt.Sprint(aggregateID),
		EventType:     eventType,
		Payload:       body,
		CreatedAt:     r.now(),
	})
	if err != nil {
		entry.WithError(err).Error("failed to enqueue outbox event")
	}
}
