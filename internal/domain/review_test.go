package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

func TestReviewValidate(t *testing.T) {
	valid := func() domain.Review {
		return domain.Review{ProductID: 1, CustomerID: "c-1", Score: 4, Status: domain.ModerationPending}
	}

	cases := []struct {
		name    string
		mut     func(r *domain.Review)
		wantErr bool
	}{
		{name: "valid", mut: func(*domain.Review) {}},
		{name: "score too low", mut: func(r *domain.Review) { r.Score = 0 }, wantErr: true},
		{name: "score too high", mut: func(r *domain.Review) { r.Score = 6 }, wantErr: true},
		{name: "comment at limit", mut: func(r *domain.Review) { r.Comment = strings.Repeat("é", 1000) }},
		{name: "comment too long", mut: func(r *domain.Review) { r.Comment = strings.Repeat("a", 1001) }, wantErr: true},
		{name: "free text status", mut: func(r *domain.Review) { r.Status = "Ok" }, wantErr: true},
		{name: "no product", mut: func(r *domain.Review) { r.ProductID = 0 }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			review := valid()
			tc.mut(&review)
			err := review.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResolveActionValid(t *testing.T) {
	require.True(t, domain.ResolveRemove.Valid())
	require.True(t, domain.ResolveKeep.Valid())
	require.False(t, domain.ResolveAction("ignore").Valid())
}
