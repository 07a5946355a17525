package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getProduct = `
SELECT id, title, author, description, price, offer_price, stock_quantity, status, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Author,
		&p.Description,
		&p.Price,
		&p.OfferPrice,
		&p.StockQuantity,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const listProducts = `
SELECT id, title, author, description, price, offer_price, stock_quantity, status, created_at, updated_at
FROM products
WHERE status = 'active'
ORDER BY title
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Author,
			&p.Description,
			&p.Price,
			&p.OfferPrice,
			&p.StockQuantity,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const searchProducts = `
SELECT id, title, author, description, price, offer_price, stock_quantity, status, created_at, updated_at
FROM products
WHERE status = 'active'
  AND (title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%')
ORDER BY title
`

func (q *Queries) SearchProducts(ctx context.Context, keyword string) ([]Product, error) {
	rows, err := q.db.Query(ctx, searchProducts, keyword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Author,
			&p.Description,
			&p.Price,
			&p.OfferPrice,
			&p.StockQuantity,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const reserveStock = `
UPDATE products
SET stock_quantity = stock_quantity - $2, updated_at = now()
WHERE id = $1 AND stock_quantity >= $2
`

type ReserveStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// ReserveStock atomically decrements stock if enough is available.
// Returns the number of rows updated: 0 means insufficient stock.
func (q *Queries) ReserveStock(ctx context.Context, arg ReserveStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, reserveStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const releaseStock = `
UPDATE products
SET stock_quantity = stock_quantity + $2, updated_at = now()
WHERE id = $1
`

type ReleaseStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

func (q *Queries) ReleaseStock(ctx context.Context, arg ReleaseStockParams) error {
	_, err := q.db.Exec(ctx, releaseStock, arg.ID, arg.Quantity)
	return err
}

const createProduct = `
INSERT INTO products (title, author, description, price, offer_price, stock_quantity, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, title, author, description, price, offer_price, stock_quantity, status, created_at, updated_at
`

type CreateProductParams struct {
	Title         string
	Author        string
	Description   pgtype.Text
	Price         pgtype.Numeric
	OfferPrice    pgtype.Numeric
	StockQuantity int32
	Status        string
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.Title,
		arg.Author,
		arg.Description,
		arg.Price,
		arg.OfferPrice,
		arg.StockQuantity,
		arg.Status,
	)
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Author,
		&p.Description,
		&p.Price,
		&p.OfferPrice,
		&p.StockQuantity,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
