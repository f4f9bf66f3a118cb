package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Нарушения внешних ключей переводятся в доменные NotFound по имени ограничения.
var foreignKeyErrors = map[string]error{
	"orders_customer_id_fkey":       domain.ErrCustomerNotFound,
	"orders_coupon_id_fkey":         domain.ErrCouponNotFound,
	"order_items_product_id_fkey":   domain.ErrProductNotFound,
	"payments_order_id_fkey":        domain.ErrOrderNotFound,
	"products_category_id_fkey":     domain.ErrCategoryNotFound,
	"reviews_product_id_fkey":       domain.ErrProductNotFound,
	"reviews_customer_id_fkey":      domain.ErrCustomerNotFound,
	"timeline_events_order_id_fkey": domain.ErrOrderNotFound,
}

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

// foreignKeyError возвращает доменную ошибку для нарушения FK или nil.
func foreignKeyError(err error) error {
	code, constraint := pgErrorCode(err)
	if code != pgForeignKeyViolation {
		return nil
	}
	if mapped, ok := foreignKeyErrors[constraint]; ok {
		return mapped
	}
	return domain.ErrNotFound
}
