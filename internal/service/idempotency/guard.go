package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// DefaultTTL - время жизни ключа идемпотентности.
const DefaultTTL = 24 * time.Hour

// ErrRequestInProgress возвращается, пока первый запрос с тем же ключом не завершился.
var ErrRequestInProgress = fmt.Errorf("request with the same idempotency key is already processing: %w", domain.ErrConflict)

// Guard оборачивает мутирующие запросы ключом Idempotency-Key.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
}

// NewGuard создаёт Guard. ttl <= 0 заменяется на DefaultTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency-guard")
	}
	return &Guard{repo: repo, ttl: ttl, logger: logger}
}

// RequestHash строит отпечаток запроса: метод, путь и тело.
// Пользователь уже входит в IdempotencyScope и в hash не участвует.
func RequestHash(method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin резервирует ключ пользователя. Если запрос уже выполнялся, возвращается
// сохранённый ответ. При (nil, nil) вызывающий обязан вызвать Finish.
func (g *Guard) Begin(ctx context.Context, scope domain.IdempotencyScope, requestHash string) (*domain.IdempotencyOutcome, error) {
	record, err := g.repo.Reserve(ctx, scope, requestHash, time.Now().UTC().Add(g.ttl))
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
	default:
		return nil, err
	}

	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		return nil, ErrRequestInProgress
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		replay := record.Outcome
		if replay.HTTPStatus == 0 {
			replay.HTTPStatus = http.StatusOK
		}
		return &replay, nil
	default:
		return nil, fmt.Errorf("unknown idempotency record status %q", record.Status)
	}
}

// Finish сохраняет ответ под ключом. Ошибка хранилища только логируется:
// ответ клиенту уже отправлен.
func (g *Guard) Finish(ctx context.Context, scope domain.IdempotencyScope, outcome domain.IdempotencyOutcome) {
	if err := g.repo.Complete(ctx, scope, outcome); err != nil {
		g.logger.WithError(err).WithFields(log.Fields{
			"actor_id":        scope.ActorID,
			"idempotency_key": scope.Key,
			"http_status":     outcome.HTTPStatus,
		}).Warn("failed to store idempotent response")
	}
}
