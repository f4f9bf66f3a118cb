package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// IdempotencyStatus описывает жизненный цикл ключа идемпотентности.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing означает, что запрос принят и ещё обрабатывается.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone означает, что запрос завершён и ответ сохранён.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed означает, что запрос завершился ответом с ошибкой.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// MaxIdempotencyKeyLength - предельная длина значения заголовка Idempotency-Key.
const MaxIdempotencyKeyLength = 255

var (
	ErrIdempotencyKeyRequired         = fmt.Errorf("idempotency key is required: %w", ErrValidation)
	ErrIdempotencyKeyTooLong          = fmt.Errorf("idempotency key must be at most %d characters: %w", MaxIdempotencyKeyLength, ErrValidation)
	ErrIdempotencyRequestHashRequired = fmt.Errorf("idempotency request hash is required: %w", ErrValidation)
	ErrIdempotencyKeyNotFound         = fmt.Errorf("idempotency key %w", ErrNotFound)
	// ErrIdempotencyKeyAlreadyExists: ключ уже занят запросом с тем же телом.
	ErrIdempotencyKeyAlreadyExists = fmt.Errorf("idempotency key already exists: %w", ErrConflict)
	// ErrIdempotencyHashMismatch: ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = fmt.Errorf("idempotency key reused with different request: %w", ErrConflict)
	// ErrIdempotencyCompleted: ответ для ключа уже сохранён.
	ErrIdempotencyCompleted = fmt.Errorf("idempotency key already completed: %w", ErrConflict)
)

// IdempotencyScope - ключ Idempotency-Key в пространстве одного пользователя.
// Одинаковые ключи разных пользователей не пересекаются.
type IdempotencyScope struct {
	ActorID string
	Key     string
}

// NewIdempotencyScope нормализует ключ. Пустой ActorID допустим для анонимных запросов.
func NewIdempotencyScope(actorID, key string) (IdempotencyScope, error) {
	scope := IdempotencyScope{ActorID: strings.TrimSpace(actorID), Key: strings.TrimSpace(key)}
	switch {
	case scope.Key == "":
		return IdempotencyScope{}, ErrIdempotencyKeyRequired
	case utf8.RuneCountInString(scope.Key) > MaxIdempotencyKeyLength:
		return IdempotencyScope{}, ErrIdempotencyKeyTooLong
	}
	return scope, nil
}

// IdempotencyOutcome - ответ, который отдаётся на повтор запроса.
type IdempotencyOutcome struct {
	HTTPStatus int
	Body       []byte
}

// Status: ответы ниже 400 завершают ключ как done, остальные как failed.
func (o IdempotencyOutcome) Status() IdempotencyStatus {
	if o.HTTPStatus < http.StatusBadRequest {
		return IdempotencyStatusDone
	}
	return IdempotencyStatusFailed
}

// IdempotencyRecord хранит состояние обработки запроса с Idempotency-Key.
type IdempotencyRecord struct {
	Scope       IdempotencyScope
	RequestHash string
	Status      IdempotencyStatus
	// Outcome заполнен только для done и failed.
	Outcome   IdempotencyOutcome
	TTLAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired сообщает, что TTL записи истёк и ключ можно занять заново.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.TTLAt.After(now)
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// IsIdempotencyConflict сообщает, что ключ уже использовался.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
