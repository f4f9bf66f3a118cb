package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type customerRepositoryInMemory struct {
	s *Store
}

func (r *customerRepositoryInMemory) Create(_ context.Context, customer domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.customers[customer.ID]; exists {
		return domain.ErrProfileExists
	}
	r.s.customers[customer.ID] = customer
	return nil
}

func (r *customerRepositoryInMemory) Get(_ context.Context, id string) (domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	customer, ok := r.s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepositoryInMemory) List(_ context.Context) ([]domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.s.customers))
	for _, customer := range r.s.customers {
		result = append(result, customer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *customerRepositoryInMemory) Update(_ context.Context, customer domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.customers[customer.ID]; !ok {
		return domain.ErrCustomerNotFound
	}
	r.s.customers[customer.ID] = customer
	return nil
}

// Delete каскадно удаляет заказы (с позициями и платежами) и отзывы клиента.
func (r *customerRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	for orderID, order := range r.s.orders {
		if order.CustomerID == id {
			r.s.deleteOrderLocked(orderID)
		}
	}
	for reviewID, review := range r.s.reviews {
		if review.CustomerID == id {
			delete(r.s.reviews, reviewID)
		}
	}
	delete(r.s.customers, id)
	return nil
}

type administratorRepositoryInMemory struct {
	s *Store
}

func (r *administratorRepositoryInMemory) Create(_ context.Context, admin domain.Administrator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.admins[admin.ID]; exists {
		return domain.ErrProfileExists
	}
	r.s.admins[admin.ID] = admin
	return nil
}

func (r *administratorRepositoryInMemory) Get(_ context.Context, id string) (domain.Administrator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	admin, ok := r.s.admins[id]
	if !ok {
		return domain.Administrator{}, domain.ErrAdminNotFound
	}
	return admin, nil
}

func (r *administratorRepositoryInMemory) List(_ context.Context) ([]domain.Administrator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Administrator, 0, len(r.s.admins))
	for _, admin := range r.s.admins {
		result = append(result, admin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *administratorRepositoryInMemory) Update(_ context.Context, admin domain.Administrator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.admins[admin.ID]; !ok {
		return domain.ErrAdminNotFound
	}
	r.s.admins[admin.ID] = admin
	return nil
}

func (r *administratorRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.admins[id]; !ok {
		return domain.ErrAdminNotFound
	}
	delete(r.s.admins, id)
	return nil
}

var (
	_ domain.CustomerRepository      = (*customerRepositoryInMemory)(nil)
	_ domain.AdministratorRepository = (*administratorRepositoryInMemory)(nil)
)
