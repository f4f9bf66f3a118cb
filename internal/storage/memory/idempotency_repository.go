package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// IdempotencyRepository хранит ключи Idempotency-Key в разрезе пользователей.
type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[domain.IdempotencyScope]domain.IdempotencyRecord
	now     func() time.Time
}

// NewIdempotencyRepository создаёт in-memory реализацию IdempotencyRepository.
func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{
		records: make(map[domain.IdempotencyScope]domain.IdempotencyRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock подменяет часы, по которым определяется истёкший TTL.
func (r *IdempotencyRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *IdempotencyRepository) Reserve(_ context.Context, scope domain.IdempotencyScope, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	requestHash = strings.TrimSpace(requestHash)
	if scope.Key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.records[scope]; ok && !existing.Expired(now) {
		if existing.RequestHash != requestHash {
			return copyRecord(existing), domain.ErrIdempotencyHashMismatch
		}
		return copyRecord(existing), domain.ErrIdempotencyKeyAlreadyExists
	}

	record := domain.IdempotencyRecord{
		Scope:       scope,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		TTLAt:       ttlAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.records[scope] = record
	return record, nil
}

func (r *IdempotencyRepository) Get(_ context.Context, scope domain.IdempotencyScope) (domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[scope]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return copyRecord(record), nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, scope domain.IdempotencyScope, outcome domain.IdempotencyOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[scope]
	switch {
	case !ok:
		return domain.ErrIdempotencyKeyNotFound
	case record.Status != domain.IdempotencyStatusProcessing:
		return domain.ErrIdempotencyCompleted
	}

	record.Status = outcome.Status()
	record.Outcome = domain.IdempotencyOutcome{
		HTTPStatus: outcome.HTTPStatus,
		Body:       append([]byte(nil), outcome.Body...),
	}
	record.UpdatedAt = r.now()
	r.records[scope] = record
	return nil
}

// DeleteExpired удаляет записи в порядке истечения TTL, как и PostgreSQL-реализация.
func (r *IdempotencyRepository) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if before.IsZero() {
		before = r.now()
	}

	expired := make([]domain.IdempotencyRecord, 0)
	for _, record := range r.records {
		if record.Expired(before) {
			expired = append(expired, record)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].TTLAt.Before(expired[j].TTLAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	for _, record := range expired {
		delete(r.records, record.Scope)
	}
	return len(expired), nil
}

func copyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.Outcome.Body = append([]byte(nil), src.Outcome.Body...)
	return dst
}

var _ domain.IdempotencyRepository = (*IdempotencyRepository)(nil)
