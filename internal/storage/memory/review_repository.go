package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type reviewRepositoryInMemory struct {
	s *Store
}

func (r *reviewRepositoryInMemory) Create(_ context.Context, review domain.Review) (domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[review.ProductID]; !ok {
		return domain.Review{}, domain.ErrProductNotFound
	}
	if _, ok := r.s.customers[review.CustomerID]; !ok {
		return domain.Review{}, domain.ErrCustomerNotFound
	}
	review.ID = r.s.nextID("reviews")
	review.Version = 1
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	r.s.reviews[review.ID] = review
	return review, nil
}

func (r *reviewRepositoryInMemory) Get(_ context.Context, id int64) (domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	review, ok := r.s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	return review, nil
}

func (r *reviewRepositoryInMemory) List(_ context.Context) ([]domain.Review, error) {
	return r.filter(func(domain.Review) bool { return true }), nil
}

func (r *reviewRepositoryInMemory) ListByProduct(_ context.Context, productID int64) ([]domain.Review, error) {
	return r.filter(func(rv domain.Review) bool { return rv.ProductID == productID }), nil
}

func (r *reviewRepositoryInMemory) ListReported(_ context.Context) ([]domain.Review, error) {
	return r.filter(func(rv domain.Review) bool { return rv.Reported }), nil
}

func (r *reviewRepositoryInMemory) filter(keep func(domain.Review) bool) []domain.Review {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Review, 0)
	for _, review := range r.s.reviews {
		if keep(review) {
			result = append(result, review)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// Save обновляет изменяемые поля отзыва. Автор и дата создания не меняются.
func (r *reviewRepositoryInMemory) Save(_ context.Context, review domain.Review) (domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.reviews[review.ID]
	if !ok {
		return domain.Review{}, &domain.ConflictError{Entity: "review", ID: review.ID, Reason: domain.ConflictDeleted}
	}
	if current.Version != review.Version {
		return domain.Review{}, &domain.ConflictError{Entity: "review", ID: review.ID, Reason: domain.ConflictStale}
	}

	current.Score = review.Score
	current.Comment = review.Comment
	current.Reported = review.Reported
	current.Status = review.Status
	current.Version++
	r.s.reviews[current.ID] = current
	return current, nil
}

func (r *reviewRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return domain.ErrReviewNotFound
	}
	delete(r.s.reviews, id)
	return nil
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
