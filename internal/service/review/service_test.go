package review

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/outbox"
	"github.com/vladislavdragonenkov/ryujinbites/internal/storage/memory"
)

var (
	carol = domain.NewActor("carol", string(domain.RoleCustomer))
	dave  = domain.NewActor("dave", string(domain.RoleCustomer))
	admin = domain.NewActor("root", string(domain.RoleAdministrator))
)

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	outbox  *memory.OutboxRepository
	svc     *Service
	product domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []string{"carol", "dave", "root"} {
		require.NoError(t, store.Customers().Create(ctx, domain.Customer{ID: id}))
	}
	category, err := store.Categories().Create(ctx, domain.Category{Name: "Bebidas"})
	require.NoError(t, err)
	product, err := store.Products().Create(ctx, domain.Product{
		Name:       "Matcha",
		Price:      decimal.RequireFromString("12.00"),
		Available:  true,
		CategoryID: category.ID,
	})
	require.NoError(t, err)

	outboxRepo := memory.NewOutboxRepository()
	svc := NewService(store.Reviews(), store.Products(), store.Customers(),
		WithEvents(outbox.NewRecorder(outboxRepo, nil)),
		WithMetrics(metrics.NewWithRegisterer(prometheus.NewRegistry())),
		WithClock(func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }),
	)

	return &fixture{ctx: ctx, store: store, outbox: outboxRepo, svc: svc, product: product}
}

func (f *fixture) review(t *testing.T, author domain.Actor) domain.Review {
	t.Helper()
	review, err := f.svc.CreateReview(f.ctx, author, CreateReviewInput{ProductID: f.product.ID, Score: 4, Comment: "bom"})
	require.NoError(t, err)
	return review
}

func TestCreateReview(t *testing.T) {
	f := newFixture(t)

	review := f.review(t, carol)
	assert.Equal(t, "carol", review.CustomerID)
	assert.False(t, review.Reported)
	assert.Equal(t, domain.ModerationPending, review.Status)
	assert.EqualValues(t, 1, review.Version)

	tests := []struct {
		name    string
		actor   domain.Actor
		in      CreateReviewInput
		wantErr error
	}{
		{name: "anonymous", actor: domain.Actor{}, in: CreateReviewInput{ProductID: f.product.ID, Score: 5}, wantErr: domain.ErrUnauthenticated},
		{name: "no customer profile", actor: domain.NewActor("eve", string(domain.RoleCustomer)), in: CreateReviewInput{ProductID: f.product.ID, Score: 5}, wantErr: domain.ErrCustomerNotFound},
		{name: "unknown product", actor: carol, in: CreateReviewInput{ProductID: 999, Score: 5}, wantErr: domain.ErrProductNotFound},
		{name: "score too low", actor: carol, in: CreateReviewInput{ProductID: f.product.ID, Score: 0}, wantErr: domain.ErrValidation},
		{name: "score too high", actor: carol, in: CreateReviewInput{ProductID: f.product.ID, Score: 6}, wantErr: domain.ErrValidation},
		{name: "comment too long", actor: carol, in: CreateReviewInput{ProductID: f.product.ID, Score: 3, Comment: strings.Repeat("a", 1001)}, wantErr: domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateReview(f.ctx, tt.actor, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReportReview_SelfReportAlwaysForbidden(t *testing.T) {
	for _, reported := range []bool{false, true} {
		t.Run(map[bool]string{false: "not reported", true: "already reported"}[reported], func(t *testing.T) {
			f := newFixture(t)
			review := f.review(t, carol)
			if reported {
				_, err := f.svc.ReportReview(f.ctx, dave, review.ID)
				require.NoError(t, err)
			}

			_, err := f.svc.ReportReview(f.ctx, carol, review.ID)
			require.ErrorIs(t, err, domain.ErrForbidden)

			stored, err := f.svc.GetReview(f.ctx, review.ID)
			require.NoError(t, err)
			assert.Equal(t, reported, stored.Reported)
		})
	}
}

func TestReportReview(t *testing.T) {
	f := newFixture(t)
	review := f.review(t, carol)

	_, err := f.svc.ReportReview(f.ctx, domain.Actor{}, review.ID)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.ReportReview(f.ctx, dave, 999)
	require.ErrorIs(t, err, domain.ErrReviewNotFound)

	reported, err := f.svc.ReportReview(f.ctx, dave, review.ID)
	require.NoError(t, err)
	assert.True(t, reported.Reported)

	_, err = f.svc.ReportReview(f.ctx, admin, review.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	events, err := f.outbox.PullPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventReviewReported, events[0].EventType)
	assert.Equal(t, domain.AggregateReview, events[0].AggregateType)
}

func TestResolveReview_KeepClearsReportedFlag(t *testing.T) {
	f := newFixture(t)
	review := f.review(t, carol)
	_, err := f.svc.ReportReview(f.ctx, dave, review.ID)
	require.NoError(t, err)

	reported, err := f.svc.ListReportedReviews(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, reported, 1)

	require.ErrorIs(t, f.svc.ResolveReview(f.ctx, dave, review.ID, domain.ResolveKeep), domain.ErrForbidden)
	require.NoError(t, f.svc.ResolveReview(f.ctx, admin, review.ID, domain.ResolveKeep))

	stored, err := f.svc.GetReview(f.ctx, review.ID)
	require.NoError(t, err)
	assert.False(t, stored.Reported)

	reported, err = f.svc.ListReportedReviews(f.ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, reported)

	// После снятия отметки на отзыв снова можно пожаловаться.
	_, err = f.svc.ReportReview(f.ctx, dave, review.ID)
	require.NoError(t, err)
}

func TestResolveReview_Remove(t *testing.T) {
	f := newFixture(t)
	review := f.review(t, carol)
	_, err := f.svc.ReportReview(f.ctx, dave, review.ID)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.ResolveReview(f.ctx, admin, review.ID, domain.ResolveAction("archive")), domain.ErrValidation)
	require.NoError(t, f.svc.ResolveReview(f.ctx, admin, review.ID, domain.ResolveRemove))

	_, err = f.svc.GetReview(f.ctx, review.ID)
	require.ErrorIs(t, err, domain.ErrReviewNotFound)
	require.ErrorIs(t, f.svc.ResolveReview(f.ctx, admin, review.ID, domain.ResolveRemove), domain.ErrReviewNotFound)
}

func TestListReportedReviews_AdminOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListReportedReviews(f.ctx, carol)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.ListReportedReviews(f.ctx, domain.Actor{})
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSetModerationStatus(t *testing.T) {
	f := newFixture(t)
	review := f.review(t, carol)

	_, err := f.svc.SetModerationStatus(f.ctx, carol, review.ID, domain.ModerationApproved)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.SetModerationStatus(f.ctx, admin, review.ID, domain.ModerationStatus("Talvez"))
	require.ErrorIs(t, err, domain.ErrValidation)

	updated, err := f.svc.SetModerationStatus(f.ctx, admin, review.ID, domain.ModerationApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationApproved, updated.Status)

	_, err = f.svc.SetModerationStatus(f.ctx, admin, 999, domain.ModerationRejected)
	require.ErrorIs(t, err, domain.ErrReviewNotFound)
}

func TestEditReview(t *testing.T) {
	f := newFixture(t)
	review := f.review(t, carol)

	_, err := f.svc.EditReview(f.ctx, dave, review.ID, EditReviewInput{Score: 1})
	require.ErrorIs(t, err, domain.ErrForbidden)

	edited, err := f.svc.EditReview(f.ctx, carol, review.ID, EditReviewInput{Version: review.Version, Score: 5, Comment: "ótimo"})
	require.NoError(t, err)
	assert.Equal(t, 5, edited.Score)
	assert.Equal(t, "carol", edited.CustomerID)
	assert.Equal(t, review.CreatedAt, edited.CreatedAt)

	_, err = f.svc.EditReview(f.ctx, carol, review.ID, EditReviewInput{Version: review.Version, Score: 2})
	require.True(t, domain.IsVersionConflict(err))

	_, err = f.svc.EditReview(f.ctx, admin, review.ID, EditReviewInput{Score: 9})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteReview(t *testing.T) {
	f := newFixture(t)
	review := f.review(t, carol)

	require.ErrorIs(t, f.svc.DeleteReview(f.ctx, dave, review.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.DeleteReview(f.ctx, carol, review.ID))
	require.ErrorIs(t, f.svc.DeleteReview(f.ctx, carol, review.ID), domain.ErrReviewNotFound)

	other := f.review(t, dave)
	require.NoError(t, f.svc.DeleteReview(f.ctx, admin, other.ID))
}

func TestListProductReviews(t *testing.T) {
	f := newFixture(t)
	f.review(t, carol)
	f.review(t, dave)

	reviews, err := f.svc.ListProductReviews(f.ctx, f.product.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	_, err = f.svc.ListProductReviews(f.ctx, 999)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	all, err := f.svc.ListReviews(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
