package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет заказ, его позиции и необязательный платёж.
	// Если у заказа есть купон с лимитом, проверка лимита выполняется в той же транзакции
	// и возвращает ErrCouponExhausted.
	Create(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ с позициями и платежом или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// List возвращает все заказы, новые первыми.
	List(ctx context.Context) ([]Order, error)
	// ListByCustomer возвращает заказы клиента, новые первыми.
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	// Save обновляет шапку заказа с учётом optimistic locking и возвращает новую версию.
	// Позиции и итог не меняются.
	Save(ctx context.Context, order Order) (Order, error)
	// Delete удаляет заказ вместе с позициями и платежом.
	Delete(ctx context.Context, id int64) error
}

// PaymentRepository хранит платежи заказов (не более одного на заказ).
type PaymentRepository interface {
	Create(ctx context.Context, payment Payment) (Payment, error)
	GetByOrder(ctx context.Context, orderID int64) (Payment, error)
	UpdateStatus(ctx context.Context, orderID int64, status PaymentStatus) (Payment, error)
}

// CouponRepository хранит купоны.
type CouponRepository interface {
	Create(ctx context.Context, coupon Coupon) (Coupon, error)
	Get(ctx context.Context, id int64) (Coupon, error)
	GetByCode(ctx context.Context, code string) (Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Update(ctx context.Context, coupon Coupon) (Coupon, error)
	// Delete удаляет купон и обнуляет ссылку на него в заказах.
	Delete(ctx context.Context, id int64) error
	// CountUses возвращает число заказов, ссылающихся на купон.
	CountUses(ctx context.Context, id int64) (int, error)
}

// CategoryRepository хранит категории меню.
type CategoryRepository interface {
	Create(ctx context.Context, category Category) (Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category Category) (Category, error)
	// Delete возвращает ErrCategoryInUse, пока в категории есть товары.
	Delete(ctx context.Context, id int64) error
}

// ProductRepository хранит товары меню.
type ProductRepository interface {
	Create(ctx context.Context, product Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	// Delete удаляет отзывы товара и возвращает ErrProductInUse,
	// если товар встречается в позициях заказов.
	Delete(ctx context.Context, id int64) error
}

// ReviewRepository хранит отзывы.
type ReviewRepository interface {
	Create(ctx context.Context, review Review) (Review, error)
	Get(ctx context.Context, id int64) (Review, error)
	List(ctx context.Context) ([]Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	ListReported(ctx context.Context) ([]Review, error)
	// Save применяет изменения с учётом версии и возвращает сохранённую запись.
	Save(ctx context.Context, review Review) (Review, error)
	Delete(ctx context.Context, id int64) error
}

// CustomerRepository хранит профили клиентов.
type CustomerRepository interface {
	Create(ctx context.Context, customer Customer) error
	Get(ctx context.Context, id string) (Customer, error)
	// List возвращает профили клиентов, упорядоченные по идентификатору.
	List(ctx context.Context) ([]Customer, error)
	Update(ctx context.Context, customer Customer) error
	// Delete каскадно удаляет заказы и отзывы клиента.
	Delete(ctx context.Context, id string) error
}

// AdministratorRepository хранит профили администраторов.
type AdministratorRepository interface {
	Create(ctx context.Context, admin Administrator) error
	Get(ctx context.Context, id string) (Administrator, error)
	List(ctx context.Context) ([]Administrator, error)
	// Update меняет должность и дату найма или возвращает ErrAdminNotFound.
	Update(ctx context.Context, admin Administrator) error
	Delete(ctx context.Context, id string) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID int64) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по Idempotency-Key.
type IdempotencyRepository interface {
	// Reserve занимает ключ со статусом processing. Запись с истёкшим TTL занимается заново.
	// Для живой записи возвращается она сама вместе с ErrIdempotencyKeyAlreadyExists
	// или ErrIdempotencyHashMismatch.
	Reserve(ctx context.Context, scope IdempotencyScope, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, scope IdempotencyScope) (IdempotencyRecord, error)
	// Complete сохраняет ответ для ключа в статусе processing.
	// Повторное завершение возвращает ErrIdempotencyCompleted.
	Complete(ctx context.Context, scope IdempotencyScope, outcome IdempotencyOutcome) error
	// DeleteExpired удаляет до limit записей с истёкшим TTL, самые старые первыми.
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
