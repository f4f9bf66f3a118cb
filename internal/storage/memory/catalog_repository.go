package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type categoryRepositoryInMemory struct {
	s *Store
}

func (r *categoryRepositoryInMemory) Create(_ context.Context, category domain.Category) (domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	category.ID = r.s.nextID("categories")
	r.s.categories[category.ID] = category
	return category, nil
}

func (r *categoryRepositoryInMemory) Get(_ context.Context, id int64) (domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	category, ok := r.s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (r *categoryRepositoryInMemory) List(_ context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Category, 0, len(r.s.categories))
	for _, category := range r.s.categories {
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *categoryRepositoryInMemory) Update(_ context.Context, category domain.Category) (domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[category.ID]; !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	r.s.categories[category.ID] = category
	return category, nil
}

// Delete запрещает удаление категории, пока в ней есть товары (RESTRICT).
func (r *categoryRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, product := range r.s.products {
		if product.CategoryID == id {
			return domain.ErrCategoryInUse
		}
	}
	delete(r.s.categories, id)
	return nil
}

type productRepositoryInMemory struct {
	s *Store
}

func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[product.CategoryID]; !ok {
		return domain.Product{}, domain.ErrCategoryNotFound
	}
	product.ID = r.s.nextID("products")
	r.s.products[product.ID] = product
	return product, nil
}

func (r *productRepositoryInMemory) Get(_ context.Context, id int64) (domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	product, ok := r.s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepositoryInMemory) List(_ context.Context) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.s.products))
	for _, product := range r.s.products {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Update меняет товар; цены в уже созданных позициях заказов остаются прежними.
func (r *productRepositoryInMemory) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[product.ID]; !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if _, ok := r.s.categories[product.CategoryID]; !ok {
		return domain.Product{}, domain.ErrCategoryNotFound
	}
	r.s.products[product.ID] = product
	return product, nil
}

// Delete удаляет товар вместе с отзывами; товар из заказов удалить нельзя.
func (r *productRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	for _, order := range r.s.orders {
		for _, item := range order.Items {
			if item.ProductID == id {
				return domain.ErrProductInUse
			}
		}
	}
	for reviewID, review := range r.s.reviews {
		if review.ProductID == id {
			delete(r.s.reviews, reviewID)
		}
	}
	delete(r.s.products, id)
	return nil
}

var (
	_ domain.CategoryRepository = (*categoryRepositoryInMemory)(nil)
	_ domain.ProductRepository  = (*productRepositoryInMemory)(nil)
)
