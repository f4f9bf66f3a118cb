package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "stale version",
			err:  &ConflictError{Entity: "order", ID: 1, Reason: ConflictStale},
			want: true,
		},
		{
			name: "wrapped stale version",
			err:  fmt.Errorf("save order: %w", &ConflictError{Entity: "order", ID: 1, Reason: ConflictStale}),
			want: true,
		},
		{
			name: "deleted row",
			err:  &ConflictError{Entity: "order", ID: 1, Reason: ConflictDeleted},
			want: false,
		},
		{
			name: "other error",
			err:  ErrOrderNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.want {
				t.Errorf("IsVersionConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConflictErrorCategories(t *testing.T) {
	deleted := &ConflictError{Entity: "review", ID: 4, Reason: ConflictDeleted}
	require.ErrorIs(t, deleted, ErrConflict)
	require.True(t, IsDeletedConflict(deleted))
	require.Contains(t, deleted.Error(), "deleted")

	stale := &ConflictError{Entity: "review", ID: 4, Reason: ConflictStale}
	require.Contains(t, stale.Error(), "modified")
}

func TestEntityErrorsWrapCategories(t *testing.T) {
	require.ErrorIs(t, ErrOrderNotFound, ErrNotFound)
	require.ErrorIs(t, ErrReviewNotFound, ErrNotFound)
	require.ErrorIs(t, ErrPaymentExists, ErrConflict)
	require.ErrorIs(t, ErrCouponExhausted, ErrValidation)
	require.False(t, errors.Is(ErrCouponExhausted, ErrNotFound))
}

func TestValidationErrorCollectsFields(t *testing.T) {
	v := &ValidationError{}
	require.NoError(t, v.OrNil())

	v.Add("score", "must be between 1 and 5")
	v.Add("comment", "is too long")
	v.Add("score", "is required")

	err := v.OrNil()
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "validation failed: comment: is too long; score: must be between 1 and 5, is required", err.Error())
}

func TestIsIdempotencyConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "idempotency already exists", err: ErrIdempotencyKeyAlreadyExists, want: true},
		{name: "idempotency hash mismatch", err: ErrIdempotencyHashMismatch, want: true},
		{
			name: "wrapped idempotency conflict",
			err:  errors.Join(ErrIdempotencyHashMismatch, errors.New("extra context")),
			want: true,
		},
		{name: "non idempotency error", err: &ConflictError{Reason: ConflictStale}, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdempotencyConflict(tt.err); got != tt.want {
				t.Errorf("IsIdempotencyConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdempotencyStatusValid(t *testing.T) {
	for _, status := range []IdempotencyStatus{IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed} {
		require.True(t, status.Valid(), status)
	}
	require.False(t, IdempotencyStatus("broken").Valid())
}
