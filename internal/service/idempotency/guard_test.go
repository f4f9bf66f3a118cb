package idempotency

import (
	"context"
	"errors"
	"net/http"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/memory"
)

func scope(t *testing.T, actorID, key string) domain.IdempotencyScope {
	t.Helper()
	s, err := domain.NewIdempotencyScope(actorID, key)
	require.NoError(t, err)
	return s
}

func TestRequestHash(t *testing.T) {
	t.Parallel()

	base := RequestHash(http.MethodPost, "/api/v1/orders", []byte(`{"a":1}`))

	assert.Equal(t, base, RequestHash(http.MethodPost, "/api/v1/orders", []byte(`{"a":1}`)))
	assert.NotEqual(t, base, RequestHash(http.MethodPost, "/api/v1/orders", []byte(`{"a":2}`)))
	assert.NotEqual(t, base, RequestHash(http.MethodPost, "/api/v1/orders/1/payment", []byte(`{"a":1}`)))
	assert.NotEqual(t, base, RequestHash(http.MethodPut, "/api/v1/orders", []byte(`{"a":1}`)))
}

func TestGuard_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	alice := scope(t, "user-1", " key-1 ")
	hash := RequestHash(http.MethodPost, "/api/v1/orders", []byte(`{}`))

	replay, err := guard.Begin(ctx, alice, hash)
	require.NoError(t, err)
	require.Nil(t, replay)

	_, err = guard.Begin(ctx, alice, hash)
	require.ErrorIs(t, err, ErrRequestInProgress)
	require.ErrorIs(t, err, domain.ErrConflict)

	guard.Finish(ctx, alice, domain.IdempotencyOutcome{HTTPStatus: http.StatusCreated, Body: []byte(`{"id":1}`)})

	replay, err = guard.Begin(ctx, alice, hash)
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, http.StatusCreated, replay.HTTPStatus)
	assert.JSONEq(t, `{"id":1}`, string(replay.Body))

	_, err = guard.Begin(ctx, alice, RequestHash(http.MethodPost, "/api/v1/orders", []byte(`{"x":1}`)))
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestGuard_SameKeyDifferentActors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	alice := scope(t, "alice", "checkout")
	bob := scope(t, "bob", "checkout")

	replay, err := guard.Begin(ctx, alice, "hash-a")
	require.NoError(t, err)
	require.Nil(t, replay)
	guard.Finish(ctx, alice, domain.IdempotencyOutcome{HTTPStatus: http.StatusCreated, Body: []byte(`{"id":1}`)})

	// Другой пользователь с тем же ключом и другим телом не конфликтует с alice.
	replay, err = guard.Begin(ctx, bob, "hash-b")
	require.NoError(t, err)
	require.Nil(t, replay)
	guard.Finish(ctx, bob, domain.IdempotencyOutcome{HTTPStatus: http.StatusCreated, Body: []byte(`{"id":2}`)})

	replay, err = guard.Begin(ctx, alice, "hash-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(replay.Body))
	replay, err = guard.Begin(ctx, bob, "hash-b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2}`, string(replay.Body))
}

func TestGuard_ReplaysFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	key := scope(t, "user-1", "key-2")

	_, err := guard.Begin(ctx, key, "hash")
	require.NoError(t, err)
	guard.Finish(ctx, key, domain.IdempotencyOutcome{HTTPStatus: http.StatusUnprocessableEntity, Body: []byte(`{"error":"validation"}`)})

	replay, err := guard.Begin(ctx, key, "hash")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, http.StatusUnprocessableEntity, replay.HTTPStatus)
}

func TestGuard_FinishLogsStoreErrors(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, log.NewEntry(logger))

	// Ключ не резервировался: сохранить ответ некуда.
	guard.Finish(context.Background(), scope(t, "user-1", "ghost"), domain.IdempotencyOutcome{HTTPStatus: http.StatusCreated})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "ghost", entry.Data["idempotency_key"])
	err, ok := entry.Data[log.ErrorKey].(error)
	require.True(t, ok)
	assert.True(t, errors.Is(err, domain.ErrIdempotencyKeyNotFound))
}

func TestNewIdempotencyScope_Validation(t *testing.T) {
	t.Parallel()

	_, err := domain.NewIdempotencyScope("user-1", "  ")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)

	long := make([]byte, domain.MaxIdempotencyKeyLength+1)
	for i := range long {
		long[i] = 'k'
	}
	_, err = domain.NewIdempotencyScope("user-1", string(long))
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyTooLong)
	require.ErrorIs(t, err, domain.ErrValidation)
}
