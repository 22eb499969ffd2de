package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"qrorder/internal/model"
)

// CatalogService manages categories, products and dining tables.
type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	c := model.Category{Name: name}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at`, name,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.CategoryID != "" && !isID(p.CategoryID) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, p.CategoryID)
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (category_id, name, description, price, available)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.CategoryID, p.Name, p.Description, p.Price, p.Available).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct changes price and availability. Existing orders keep their checkout prices.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, price int64, available bool) (*model.Product, error) {
	if !isID(id) {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET price = $1, available = $2 WHERE id = $3
		RETURNING id, COALESCE(category_id::text, ''), name, description, price, available, created_at
	`, price, available, id)
	return scanProduct(row)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if !isID(id) {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(category_id::text, ''), name, description, price, available, created_at
		FROM products WHERE id = $1
	`, id)
	return scanProduct(row)
}

// ListProducts returns the menu; onlyAvailable hides sold-out items.
func (s *CatalogService) ListProducts(ctx context.Context, onlyAvailable bool) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(category_id::text, ''), name, description, price, available, created_at
		FROM products
		WHERE NOT $1 OR available
		ORDER BY name
	`, onlyAvailable)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *CatalogService) CreateTable(ctx context.Context, number int, stallID string) (*model.Table, error) {
	t := model.Table{Number: number, StallID: stallID}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO dining_tables (number, stall_id) VALUES ($1, $2) RETURNING id, created_at`,
		number, stallID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert table: %w", err)
	}
	return &t, nil
}

func (s *CatalogService) GetTable(ctx context.Context, number int, stallID string) (*model.Table, error) {
	var t model.Table
	err := s.db.QueryRowContext(ctx,
		`SELECT id, number, stall_id, created_at FROM dining_tables WHERE number = $1 AND stall_id = $2`,
		number, stallID,
	).Scan(&t.ID, &t.Number, &t.StallID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	return &t, nil
}

func (s *CatalogService) ListTables(ctx context.Context) ([]model.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, number, stall_id, created_at FROM dining_tables ORDER BY stall_id, number`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []model.Table
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.Number, &t.StallID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Available, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
