package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/flashsale-storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, percentage_off, stock, total_stock, image_link`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	listProductsPageSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id LIMIT $1 OFFSET $2`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	updateStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1
		RETURNING ` + productColumns

	listProductIDsSQL = `SELECT id FROM products`

	insertProductSQL = `INSERT INTO products (name, description, price, percentage_off, stock, total_stock, image_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListPage returns one page of the catalog ordered by ID.
func (r *ProductRepository) ListPage(ctx context.Context, limit, offset int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsPageSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing products page: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// UpdateStock sets the remaining stock of a product (external stock refresh)
// and returns the updated row.
func (r *ProductRepository) UpdateStock(ctx context.Context, id int64, stock int) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, updateStockSQL, id, stock)
	if err != nil {
		return nil, fmt.Errorf("updating stock of product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating stock of product %d: %w", id, err)
	}
	return &p, nil
}

// ListIDs returns every product ID in the catalog. Used to arm the known-ID
// filter at startup.
func (r *ProductRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, listProductIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing product ids: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	})
}

// Insert stores a new product and returns its generated ID.
func (r *ProductRepository) Insert(ctx context.Context, p *product.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertProductSQL,
		p.Name, p.Description, p.Price, p.PercentageOff, p.Stock, p.TotalStock, p.ImageLink,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting product %q: %w", p.Name, err)
	}
	return id, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
		pct   decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &price, &pct,
		&p.Stock, &p.TotalStock, &p.ImageLink,
	)
	p.Price = price
	p.PercentageOff = pct
	return p, err
}
