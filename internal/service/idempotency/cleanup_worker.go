package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500
)

type cleanupOptions struct {
	logger    *log.Entry
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*cleanupOptions)

// WithLogger задаёт logger воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *cleanupOptions) { opts.logger = logger }
}

// WithMetrics подключает счётчики очистки.
func WithMetrics(m *metrics.Metrics) CleanupOption {
	return func(opts *cleanupOptions) { opts.metrics = m }
}

// WithInterval задаёт паузу между циклами очистки.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *cleanupOptions) { opts.interval = interval }
}

// WithBatchSize ограничивает число ключей, удаляемых одним запросом.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *cleanupOptions) { opts.batchSize = batchSize }
}

// WithCleanupClock подменяет источник времени.
func WithCleanupClock(now func() time.Time) CleanupOption {
	return func(opts *cleanupOptions) { opts.now = now }
}

// CleanupWorker удаляет ключи Idempotency-Key, у которых истёк TTL.
// Пока ключ жив, повтор запроса с ним вернёт сохранённый ответ.
type CleanupWorker struct {
	repo domain.IdempotencyRepository
	cleanupOptions
}

// NewCleanupWorker создаёт воркер очистки.
func NewCleanupWorker(repo domain.IdempotencyRepository, options ...CleanupOption) *CleanupWorker {
	opts := cleanupOptions{
		interval:  defaultCleanupInterval,
		batchSize: defaultCleanupBatchSize,
		now:       time.Now,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.logger == nil {
		opts.logger = log.WithField("component", "idempotency-cleanup-worker")
	}
	if opts.interval <= 0 {
		opts.interval = defaultCleanupInterval
	}
	if opts.batchSize <= 0 {
		opts.batchSize = defaultCleanupBatchSize
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	return &CleanupWorker{repo: repo, cleanupOptions: opts}
}

// Run чистит ключи сразу и затем раз в interval, пока не отменён ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("idempotency cleanup worker is disabled: repo is nil")
		return
	}

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	deleted, err := w.DeleteExpired(ctx, w.now().UTC())
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		w.metrics.IdempotencyCleanup(false, deleted)
		w.logger.WithError(err).Warn("idempotency cleanup run failed")
		return
	}

	w.metrics.IdempotencyCleanup(true, deleted)
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("expired idempotency keys removed")
	}
}

// DeleteExpired удаляет ключи с ttl <= before порциями по batchSize.
// Возвращает число удалённых ключей, в том числе при ошибке на одной из порций.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = w.now().UTC()
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.repo.DeleteExpired(ctx, before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < w.batchSize {
			return total, nil
		}
	}
}
