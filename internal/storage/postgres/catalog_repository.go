package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ryujinbites/internal/domain"
)

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository создаёт PostgreSQL-реализацию CategoryRepository.
func NewCategoryRepository(store *Store) domain.CategoryRepository {
	return &categoryRepository{db: store.DB()}
}

func (r *categoryRepository) Create(ctx context.Context, category domain.Category) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description) VALUES ($1,$2) RETURNING id
	`, category.Name, category.Description).Scan(&category.ID); err != nil {
		return domain.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) Get(ctx context.Context, id int64) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var category domain.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description FROM categories WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &category.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category domain.Category) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $1, description = $2 WHERE id = $3
	`, category.Name, category.Description, category.ID)
	if err != nil {
		return domain.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := expectAffected(res, domain.ErrCategoryNotFound); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// Delete удаляет категорию, если в ней не осталось товаров.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var inUse bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)
		`, id).Scan(&inUse); err != nil {
			return fmt.Errorf("check category products: %w", err)
		}
		if inUse {
			return domain.ErrCategoryInUse
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return expectAffected(res, domain.ErrCategoryNotFound)
	})
}

const productColumns = `id, name, description, price, image_url, available, category_id`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, price, image_url, available, category_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`,
		product.Name, product.Description, product.Price, product.ImageURL,
		product.Available, product.CategoryID,
	).Scan(&product.ID)
	if err != nil {
		return domain.Product{}, mapWriteError("insert product", err)
	}
	return product, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4, available = $5, category_id = $6
		WHERE id = $7
	`,
		product.Name, product.Description, product.Price, product.ImageURL,
		product.Available, product.CategoryID, product.ID,
	)
	if err != nil {
		return domain.Product{}, mapWriteError("update product", err)
	}
	if err := expectAffected(res, domain.ErrProductNotFound); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// Delete удаляет отзывы товара и сам товар; товар из позиций заказов не удаляется.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var inUse bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)
		`, id).Scan(&inUse); err != nil {
			return fmt.Errorf("check product order items: %w", err)
		}
		if inUse {
			return domain.ErrProductInUse
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("delete product reviews: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return expectAffected(res, domain.ErrProductNotFound)
	})
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Price,
		&product.ImageURL, &product.Available, &product.CategoryID,
	)
	return product, err
}

var (
	_ domain.CategoryRepository = (*categoryRepository)(nil)
	_ domain.ProductRepository  = (*productRepository)(nil)
)
