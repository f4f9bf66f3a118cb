package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, address, complement, city, state, postal_code)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		customer.ID, customer.Address, customer.Complement,
		customer.City, customer.State, customer.PostalCode,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProfileExists
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var customer domain.Customer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, address, complement, city, state, postal_code
		FROM customers
		WHERE id = $1
	`, id).Scan(
		&customer.ID, &customer.Address, &customer.Complement,
		&customer.City, &customer.State, &customer.PostalCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, address, complement, city, state, postal_code
		FROM customers
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID, &customer.Address, &customer.Complement,
			&customer.City, &customer.State, &customer.PostalCode,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func (r *customerRepository) Update(ctx context.Context, customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET address = $1, complement = $2, city = $3, state = $4, postal_code = $5
		WHERE id = $6
	`,
		customer.Address, customer.Complement, customer.City,
		customer.State, customer.PostalCode, customer.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return expectAffected(res, domain.ErrCustomerNotFound)
}

// Delete удаляет клиента вместе с заказами (позиции, платежи) и отзывами.
func (r *customerRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		cascade := []struct {
			what  string
			query string
		}{
			{"payments", `DELETE FROM payments WHERE order_id IN (SELECT id FROM orders WHERE customer_id = $1)`},
			{"order items", `DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE customer_id = $1)`},
			{"orders", `DELETE FROM orders WHERE customer_id = $1`},
			{"reviews", `DELETE FROM reviews WHERE customer_id = $1`},
		}
		for _, step := range cascade {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return fmt.Errorf("delete customer %s: %w", step.what, err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		return expectAffected(res, domain.ErrCustomerNotFound)
	})
}

type administratorRepository struct {
	db *sql.DB
}

// NewAdministratorRepository создаёт PostgreSQL-реализацию AdministratorRepository.
func NewAdministratorRepository(store *Store) domain.AdministratorRepository {
	return &administratorRepository{db: store.DB()}
}

func (r *administratorRepository) Create(ctx context.Context, admin domain.Administrator) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO administrators (id, title, hired_at) VALUES ($1,$2,$3)
	`, admin.ID, admin.Title, admin.HiredAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProfileExists
		}
		return fmt.Errorf("insert administrator: %w", err)
	}
	return nil
}

func (r *administratorRepository) Get(ctx context.Context, id string) (domain.Administrator, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var admin domain.Administrator
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, hired_at FROM administrators WHERE id = $1
	`, id).Scan(&admin.ID, &admin.Title, &admin.HiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Administrator{}, domain.ErrAdminNotFound
		}
		return domain.Administrator{}, fmt.Errorf("select administrator: %w", err)
	}
	admin.HiredAt = admin.HiredAt.UTC()
	return admin, nil
}

func (r *administratorRepository) List(ctx context.Context) ([]domain.Administrator, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, title, hired_at FROM administrators ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list administrators: %w", err)
	}
	defer rows.Close()

	var admins []domain.Administrator
	for rows.Next() {
		var admin domain.Administrator
		if err := rows.Scan(&admin.ID, &admin.Title, &admin.HiredAt); err != nil {
			return nil, fmt.Errorf("scan administrator: %w", err)
		}
		admin.HiredAt = admin.HiredAt.UTC()
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate administrators: %w", err)
	}
	return admins, nil
}

func (r *administratorRepository) Update(ctx context.Context, admin domain.Administrator) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE administrators SET title = $1, hired_at = $2 WHERE id = $3
	`, admin.Title, admin.HiredAt, admin.ID)
	if err != nil {
		return fmt.Errorf("update administrator: %w", err)
	}
	return expectAffected(res, domain.ErrAdminNotFound)
}

func (r *administratorRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM administrators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete administrator: %w", err)
	}
	return expectAffected(res, domain.ErrAdminNotFound)
}

var (
	_ domain.CustomerRepository      = (*customerRepository)(nil)
	_ domain.AdministratorRepository = (*administratorRepository)(nil)
)
