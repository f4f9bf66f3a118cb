package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// Store - общее in-memory хранилище реляционных сущностей.
// Один мьютекс на все таблицы: проверки внешних ключей и каскады атомарны,
// как транзакции в Postgres.
type Store struct {
	mu sync.RWMutex

	seq map[string]int64

	orders     map[int64]domain.Order
	payments   map[int64]domain.Payment // ключ - OrderID
	coupons    map[int64]domain.Coupon
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	reviews    map[int64]domain.Review
	customers  map[string]domain.Customer
	admins     map[string]domain.Administrator
}

// NewStore создаёт пустое хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		seq:        make(map[string]int64),
		orders:     make(map[int64]domain.Order),
		payments:   make(map[int64]domain.Payment),
		coupons:    make(map[int64]domain.Coupon),
		categories: make(map[int64]domain.Category),
		products:   make(map[int64]domain.Product),
		reviews:    make(map[int64]domain.Review),
		customers:  make(map[string]domain.Customer),
		admins:     make(map[string]domain.Administrator),
	}
}

// Orders возвращает репозиторий заказов поверх хранилища.
func (s *Store) Orders() domain.OrderRepository { return &orderRepositoryInMemory{s: s} }

// Payments возвращает репозиторий платежей.
func (s *Store) Payments() domain.PaymentRepository { return &paymentRepositoryInMemory{s: s} }

// Coupons возвращает репозиторий купонов.
func (s *Store) Coupons() domain.CouponRepository { return &couponRepositoryInMemory{s: s} }

// Categories возвращает репозиторий категорий.
func (s *Store) Categories() domain.CategoryRepository { return &categoryRepositoryInMemory{s: s} }

// Products возвращает репозиторий товаров.
func (s *Store) Products() domain.ProductRepository { return &productRepositoryInMemory{s: s} }

// Reviews возвращает репозиторий отзывов.
func (s *Store) Reviews() domain.ReviewRepository { return &reviewRepositoryInMemory{s: s} }

// Customers возвращает репозиторий профилей клиентов.
func (s *Store) Customers() domain.CustomerRepository { return &customerRepositoryInMemory{s: s} }

// Administrators возвращает репозиторий профилей администраторов.
func (s *Store) Administrators() domain.AdministratorRepository {
	return &administratorRepositoryInMemory{s: s}
}

// nextID выдаёт следующий идентификатор таблицы. Вызывается под s.mu.
func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// deleteOrderLocked удаляет заказ вместе с платежом. Позиции хранятся внутри заказа.
func (s *Store) deleteOrderLocked(id int64) {
	delete(s.orders, id)
	delete(s.payments, id)
}

// withPaymentLocked подставляет платёж в копию заказа.
func (s *Store) withPaymentLocked(order domain.Order) domain.Order {
	out := order.Clone()
	if payment, ok := s.payments[order.ID]; ok {
		out.Payment = &payment
	}
	return out
}

func sortOrdersNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}
