// Package review реализует отзывы о товарах и их модерацию: жалобы клиентов,
// разбор жалоб и статус модерации.
package review

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
	"github.com/vladislavdragonenkov/ryujinbites/internal/metrics"
	"github.com/vladislavdragonenkov/ryujinbites/internal/service/outbox"
)

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents включает запись событий модерации в outbox.
func WithEvents(recorder *outbox.Recorder) Option {
	return func(s *Service) { s.events = recorder }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service управляет отзывами.
type Service struct {
	reviews   domain.ReviewRepository
	products  domain.ProductRepository
	customers domain.CustomerRepository

	events  *outbox.Recorder
	metrics *metrics.Metrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService создаёт сервис отзывов.
func NewService(
	reviews domain.ReviewRepository,
	products domain.ProductRepository,
	customers domain.CustomerRepository,
	options ...Option,
) *Service {
	s := &Service{
		reviews:   reviews,
		products:  products,
		customers: customers,
		logger:    log.WithField("component", "review-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// CreateReviewInput - новый отзыв.
type CreateReviewInput struct {
	ProductID int64
	Score     int
	Comment   string
}

// EditReviewInput - новые оценка и комментарий.
type EditReviewInput struct {
	Version int64
	Score   int
	Comment string
}

// CreateReview публикует отзыв от имени клиента.
func (s *Service) CreateReview(ctx context.Context, actor domain.Actor, in CreateReviewInput) (domain.Review, error) {
	if err := actor.RequireAnyRole(domain.RoleCustomer, domain.RoleAdministrator); err != nil {
		return domain.Review{}, err
	}
	if _, err := s.customers.Get(ctx, actor.ID); err != nil {
		return domain.Review{}, err
	}
	if _, err := s.products.Get(ctx, in.ProductID); err != nil {
		return domain.Review{}, err
	}

	review := domain.Review{
		ProductID:  in.ProductID,
		CustomerID: actor.ID,
		Score:      in.Score,
		Comment:    strings.TrimSpace(in.Comment),
		CreatedAt:  s.now(),
		Status:     domain.ModerationPending,
	}
	if err := review.Validate(); err != nil {
		return domain.Review{}, err
	}
	return s.reviews.Create(ctx, review)
}

// GetReview возвращает отзыв.
func (s *Service) GetReview(ctx context.Context, id int64) (domain.Review, error) {
	return s.reviews.Get(ctx, id)
}

// ListReviews возвращает все отзывы, новые первыми.
func (s *Service) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return s.reviews.List(ctx)
}

// ListProductReviews возвращает отзывы товара.
func (s *Service) ListProductReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.reviews.ListByProduct(ctx, productID)
}

// EditReview меняет оценку и комментарий. Автор и дата создания не меняются.
func (s *Service) EditReview(ctx context.Context, actor domain.Actor, id int64, in EditReviewInput) (domain.Review, error) {
	review, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return domain.Review{}, err
	}
	if in.Version > 0 {
		review.Version = in.Version
	}
	review.Score = in.Score
	review.Comment = strings.TrimSpace(in.Comment)
	if err := review.Validate(); err != nil {
		return domain.Review{}, err
	}
	return s.save(ctx, review)
}

// DeleteReview удаляет отзыв (автор или администратор).
func (s *Service) DeleteReview(ctx context.Context, actor domain.Actor, id int64) error {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return err
	}
	return s.reviews.Delete(ctx, id)
}

// ReportReview отмечает отзыв как спорный. Жаловаться на собственный отзыв нельзя,
// повторная жалоба отклоняется.
func (s *Service) ReportReview(ctx context.Context, actor domain.Actor, id int64) (domain.Review, error) {
	if err := actor.RequireAnyRole(domain.RoleCustomer, domain.RoleAdministrator); err != nil {
		return domain.Review{}, err
	}
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if review.CustomerID == actor.ID {
		return domain.Review{}, domain.ErrForbidden
	}
	if review.Reported {
		return domain.Review{}, domain.ErrForbidden
	}

	review.Reported = true
	saved, err := s.save(ctx, review)
	if err != nil {
		return domain.Review{}, err
	}

	s.logger.WithFields(log.Fields{"review_id": id, "reporter_id": actor.ID}).Info("review reported")
	s.metrics.ReviewReported()
	s.events.Record(ctx, domain.AggregateReview, id, domain.EventReviewReported, domain.ReviewModerationEvent{
		ReviewID:   saved.ID,
		ProductID:  saved.ProductID,
		AuthorID:   saved.CustomerID,
		ActorID:    actor.ID,
		OccurredAt: s.now(),
	})
	return saved, nil
}

// ListReportedReviews возвращает отзывы с жалобами (только администратор).
func (s *Service) ListReportedReviews(ctx context.Context, actor domain.Actor) ([]domain.Review, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.reviews.ListReported(ctx)
}

// ResolveReview разбирает жалобу: remove удаляет отзыв, keep снимает отметку.
func (s *Service) ResolveReview(ctx context.Context, actor domain.Actor, id int64, action domain.ResolveAction) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if !action.Valid() {
		return domain.NewValidationError("action", "must be \"remove\" or \"keep\"")
	}

	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}

	switch action {
	case domain.ResolveRemove:
		if err := s.reviews.Delete(ctx, id); err != nil {
			return err
		}
	case domain.ResolveKeep:
		review.Reported = false
		if _, err := s.save(ctx, review); err != nil {
			return err
		}
	}

	s.logger.WithFields(log.Fields{"review_id": id, "action": action}).Info("review report resolved")
	s.metrics.ReviewResolved(string(action))
	s.events.Record(ctx, domain.AggregateReview, id, domain.EventReviewResolved, domain.ReviewModerationEvent{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		AuthorID:   review.CustomerID,
		ActorID:    actor.ID,
		Action:     action,
		OccurredAt: s.now(),
	})
	return nil
}

// SetModerationStatus задаёт статус модерации (только администратор).
func (s *Service) SetModerationStatus(ctx context.Context, actor domain.Actor, id int64, status domain.ModerationStatus) (domain.Review, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Review{}, err
	}
	if !status.Valid() {
		return domain.Review{}, domain.NewValidationError("status", "must be Pendente, Aprovado or Rejeitado")
	}

	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	review.Status = status
	return s.save(ctx, review)
}

func (s *Service) loadOwned(ctx context.Context, actor domain.Actor, id int64) (domain.Review, error) {
	if actor.Anonymous() {
		return domain.Review{}, domain.ErrUnauthenticated
	}
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if !actor.CanAct(review.CustomerID) {
		return domain.Review{}, domain.ErrForbidden
	}
	return review, nil
}

func (s *Service) save(ctx context.Context, review domain.Review) (domain.Review, error) {
	saved, err := s.reviews.Save(ctx, review)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.Conflict(conflict.Entity, string(conflict.Reason))
		}
		return domain.Review{}, err
	}
	return saved, nil
}
