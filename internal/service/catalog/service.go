// Package catalog управляет меню: категориями и товарами.
// Чтение доступно всем, изменения только администраторам.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

// Service - сервис каталога.
type Service struct {
	categories domain.CategoryRepository
	products   domain.ProductRepository
	logger     *log.Entry
}

// NewService создаёт сервис каталога. nil logger заменяется компонентным logger по умолчанию.
func NewService(categories domain.CategoryRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	return &Service{categories: categories, products: products, logger: logger}
}

// CategoryInput - изменяемые поля категории.
type CategoryInput struct {
	Name        string
	Description string
}

// ProductInput - изменяемые поля товара.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Available   bool
	CategoryID  int64
}

// ListCategories возвращает все категории.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// GetCategory возвращает категорию.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	return s.categories.Get(ctx, id)
}

// CreateCategory добавляет категорию.
func (s *Service) CreateCategory(ctx context.Context, actor domain.Actor, in CategoryInput) (domain.Category, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Category{}, err
	}
	category := domain.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}

	created, err := s.categories.Create(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.logger.WithFields(log.Fields{"category_id": created.ID, "actor_id": actor.ID}).Info("category created")
	return created, nil
}

// UpdateCategory заменяет поля категории.
func (s *Service) UpdateCategory(ctx context.Context, actor domain.Actor, id int64, in CategoryInput) (domain.Category, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Category{}, err
	}
	category := domain.Category{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}
	return s.categories.Update(ctx, category)
}

// DeleteCategory удаляет пустую категорию.
func (s *Service) DeleteCategory(ctx context.Context, actor domain.Actor, id int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"category_id": id, "actor_id": actor.ID}).Info("category deleted")
	return nil
}

// ListProducts возвращает все товары.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

// GetProduct возвращает товар.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

// CreateProduct добавляет товар в существующую категорию.
func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, in ProductInput) (domain.Product, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Product{}, err
	}
	product, err := s.buildProduct(ctx, 0, in)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"price":      created.Price.StringFixed(2),
		"actor_id":   actor.ID,
	}).Info("product created")
	return created, nil
}

// UpdateProduct заменяет поля товара. Позиции уже созданных заказов сохраняют свои цены.
func (s *Service) UpdateProduct(ctx context.Context, actor domain.Actor, id int64, in ProductInput) (domain.Product, error) {
	if err := actor.RequireAdmin(); err != nil {
		return domain.Product{}, err
	}
	if _, err := s.products.Get(ctx, id); err != nil {
		return domain.Product{}, err
	}
	product, err := s.buildProduct(ctx, id, in)
	if err != nil {
		return domain.Product{}, err
	}
	return s.products.Update(ctx, product)
}

// DeleteProduct удаляет товар вместе с отзывами. Товар из заказов удалить нельзя.
func (s *Service) DeleteProduct(ctx context.Context, actor domain.Actor, id int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"product_id": id, "actor_id": actor.ID}).Info("product deleted")
	return nil
}

func (s *Service) buildProduct(ctx context.Context, id int64, in ProductInput) (domain.Product, error) {
	product := domain.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       domain.RoundMoney(in.Price),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Available:   in.Available,
		CategoryID:  in.CategoryID,
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}

	if _, err := s.categories.Get(ctx, product.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, domain.NewValidationError("category_id", "category does not exist")
		}
		return domain.Product{}, err
	}
	return product, nil
}
