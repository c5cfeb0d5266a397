package catalog

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/dcastano/orders-ms/internal/domain"
)

// ProductRepository reads the catalog side's products table. Ids with no
// row are silently absent from the result.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.ProductSnapshot, error) {
	if len(ids) == 0 {
		return []domain.ProductSnapshot{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make([]domain.ProductSnapshot, 0, len(ids))
	for rows.Next() {
		var p domain.ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.ProductSnapshot, error) {
	var p domain.ProductSnapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.ProductSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.ProductSnapshot
	for rows.Next() {
		var p domain.ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}
