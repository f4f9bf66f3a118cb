package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const reviewColumns = `id, product_id, customer_id, score, comment, created_at, reported, status, version`

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{db: store.DB()}
}

func (r *reviewRepository) Create(ctx context.Context, review domain.Review) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	review.Version = 1

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (product_id, customer_id, score, comment, created_at, reported, status, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`,
		review.ProductID, review.CustomerID, review.Score, review.Comment,
		review.CreatedAt, review.Reported, string(review.Status), review.Version,
	).Scan(&review.ID)
	if err != nil {
		return domain.Review{}, mapWriteError("insert review", err)
	}
	return review, nil
}

func (r *reviewRepository) Get(ctx context.Context, id int64) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	review, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("select review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) List(ctx context.Context) ([]domain.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC, id DESC`)
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return r.list(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
	`, productID)
}

func (r *reviewRepository) ListReported(ctx context.Context) ([]domain.Review, error) {
	return r.list(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE reported
		ORDER BY created_at DESC, id DESC
	`)
}

func (r *reviewRepository) list(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// Save обновляет оценку, текст, флаг жалобы и статус модерации с проверкой версии.
func (r *reviewRepository) Save(ctx context.Context, review domain.Review) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var saved domain.Review
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		saved, err = scanReview(tx.QueryRowContext(ctx, `
			UPDATE reviews
			SET score = $1, comment = $2, reported = $3, status = $4, version = version + 1
			WHERE id = $5 AND version = $6
			RETURNING `+reviewColumns,
			review.Score, review.Comment, review.Reported, string(review.Status), review.ID, review.Version,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return versionConflictTx(ctx, tx, "review", "reviews", review.ID)
		}
		if err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}
	return saved, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return expectAffected(res, domain.ErrReviewNotFound)
}

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		review domain.Review
		status string
	)
	if err := row.Scan(
		&review.ID, &review.ProductID, &review.CustomerID, &review.Score, &review.Comment,
		&review.CreatedAt, &review.Reported, &status, &review.Version,
	); err != nil {
		return domain.Review{}, err
	}
	review.Status = domain.ModerationStatus(status)
	review.CreatedAt = review.CreatedAt.UTC()
	return review, nil
}

var _ domain.ReviewRepository = (*reviewRepository)(nil)
