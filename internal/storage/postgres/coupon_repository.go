package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const couponColumns = `id, code, discount_type, discount_value, starts_at, ends_at, active, max_uses`

type couponRepository struct {
	db *sql.DB
}

// NewCouponRepository создаёт PostgreSQL-реализацию CouponRepository.
func NewCouponRepository(store *Store) domain.CouponRepository {
	return &couponRepository{db: store.DB()}
}

func (r *couponRepository) Create(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coupon.Code = strings.TrimSpace(coupon.Code)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO coupons (code, discount_type, discount_value, starts_at, ends_at, active, max_uses)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`,
		coupon.Code, string(coupon.DiscountType), coupon.DiscountValue,
		coupon.StartsAt, coupon.EndsAt, coupon.Active, nullInt(coupon.MaxUses),
	).Scan(&coupon.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Coupon{}, domain.ErrCouponCodeTaken
		}
		return domain.Coupon{}, fmt.Errorf("insert coupon: %w", err)
	}
	return coupon, nil
}

func (r *couponRepository) Get(ctx context.Context, id int64) (domain.Coupon, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (domain.Coupon, error) {
	return r.getBy(ctx, `code = $1`, strings.TrimSpace(code))
}

func (r *couponRepository) getBy(ctx context.Context, where string, arg any) (domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coupon, err := scanCoupon(r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Coupon{}, domain.ErrCouponNotFound
		}
		return domain.Coupon{}, fmt.Errorf("select coupon: %w", err)
	}
	return coupon, nil
}

func (r *couponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0)
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}
	return coupons, nil
}

func (r *couponRepository) Update(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coupon.Code = strings.TrimSpace(coupon.Code)
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET code = $1, discount_type = $2, discount_value = $3,
		    starts_at = $4, ends_at = $5, active = $6, max_uses = $7
		WHERE id = $8
	`,
		coupon.Code, string(coupon.DiscountType), coupon.DiscountValue,
		coupon.StartsAt, coupon.EndsAt, coupon.Active, nullInt(coupon.MaxUses), coupon.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Coupon{}, domain.ErrCouponCodeTaken
		}
		return domain.Coupon{}, fmt.Errorf("update coupon: %w", err)
	}
	if err := expectAffected(res, domain.ErrCouponNotFound); err != nil {
		return domain.Coupon{}, err
	}
	return coupon, nil
}

// Delete обнуляет ссылку на купон в заказах и удаляет купон.
func (r *couponRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET coupon_id = NULL WHERE coupon_id = $1`, id); err != nil {
			return fmt.Errorf("detach coupon from orders: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete coupon: %w", err)
		}
		return expectAffected(res, domain.ErrCouponNotFound)
	})
}

func (r *couponRepository) CountUses(ctx context.Context, id int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		exists bool
		uses   int
	)
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1),
		       (SELECT COUNT(*) FROM orders WHERE coupon_id = $1)
	`, id).Scan(&exists, &uses); err != nil {
		return 0, fmt.Errorf("count coupon uses: %w", err)
	}
	if !exists {
		return 0, domain.ErrCouponNotFound
	}
	return uses, nil
}

func scanCoupon(row rowScanner) (domain.Coupon, error) {
	var (
		coupon       domain.Coupon
		discountType string
		maxUses      sql.NullInt64
	)
	if err := row.Scan(
		&coupon.ID, &coupon.Code, &discountType, &coupon.DiscountValue,
		&coupon.StartsAt, &coupon.EndsAt, &coupon.Active, &maxUses,
	); err != nil {
		return domain.Coupon{}, err
	}
	coupon.DiscountType = domain.DiscountType(discountType)
	coupon.StartsAt = coupon.StartsAt.UTC()
	coupon.EndsAt = coupon.EndsAt.UTC()
	if maxUses.Valid {
		uses := int(maxUses.Int64)
		coupon.MaxUses = &uses
	}
	return coupon, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки.
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.CouponRepository = (*couponRepository)(nil)
