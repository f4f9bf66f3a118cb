package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Базовые категории ошибок. Конкретные ошибки сущностей оборачивают их,
// поэтому транспорт проверяет только категорию через errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	// ErrUnauthenticated возвращается, когда в запросе нет актёра.
	ErrUnauthenticated = errors.New("unauthenticated")
)

var (
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrPaymentNotFound  = fmt.Errorf("payment %w", ErrNotFound)
	ErrCouponNotFound   = fmt.Errorf("coupon %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrAdminNotFound    = fmt.Errorf("administrator %w", ErrNotFound)
	ErrReviewNotFound   = fmt.Errorf("review %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	// ErrPaymentExists: у заказа уже есть платёж (связь один-к-одному).
	ErrPaymentExists = fmt.Errorf("payment already exists for order: %w", ErrConflict)
	// ErrCouponCodeTaken: код купона должен быть уникальным.
	ErrCouponCodeTaken = fmt.Errorf("coupon code already in use: %w", ErrConflict)
	// ErrEmailTaken: e-mail уже зарегистрирован у провайдера идентичности.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", ErrConflict)
	// ErrProfileExists: профиль клиента/администратора уже создан.
	ErrProfileExists = fmt.Errorf("profile already exists: %w", ErrConflict)
	// ErrCouponExhausted: лимит использований купона исчерпан.
	ErrCouponExhausted = fmt.Errorf("coupon usage limit reached: %w", ErrValidation)
	// ErrCategoryInUse: категорию нельзя удалить, пока на неё ссылаются товары.
	ErrCategoryInUse = fmt.Errorf("category still has products: %w", ErrConflict)
	// ErrProductInUse: товар нельзя удалить, пока он есть в позициях заказов.
	ErrProductInUse = fmt.Errorf("product is referenced by orders: %w", ErrConflict)
)

// ValidationError собирает ошибки по полям запроса.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError создаёт ошибку с одним замечанием.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add добавляет замечание к полю.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// Empty сообщает, что замечаний нет.
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil возвращает nil, если замечаний нет (удобно в конце валидации).
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(v.Fields[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// ConflictReason различает причины конфликта при сохранении.
type ConflictReason string

const (
	// ConflictDeleted - запись удалена другим участником между чтением и записью.
	ConflictDeleted ConflictReason = "deleted"
	// ConflictStale - версия строки изменилась (optimistic locking).
	ConflictStale ConflictReason = "stale"
)

// ConflictError описывает конфликт конкурентного изменения.
type ConflictError struct {
	Entity string
	ID     int64
	Reason ConflictReason
}

func (e *ConflictError) Error() string {
	if e.Reason == ConflictDeleted {
		return fmt.Sprintf("%s %d was deleted by another actor", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %d was modified by another actor", e.Entity, e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Reason == ConflictStale
}

// IsDeletedConflict проверяет, что запись исчезла до сохранения.
func IsDeletedConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Reason == ConflictDeleted
}
