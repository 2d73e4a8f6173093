package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"market-telegram/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *Store) AddProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO products (name, price_per_kg, is_available)
		VALUES ($1, $2, true)
		RETURNING id`,
		name, price,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateProduct
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

// ListProducts returns products ordered by name.
func (s *Store) ListProducts(ctx context.Context, availableOnly bool) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price_per_kg, is_available FROM products
		WHERE is_available OR NOT $1
		ORDER BY name`,
		availableOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PricePerKg, &p.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRow(ctx, `
		SELECT id, name, price_per_kg, is_available FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.PricePerKg, &p.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProduct applies any subset of name, price and availability.
func (s *Store) UpdateProduct(ctx context.Context, id int64, u models.ProductUpdate) error {
	if u.Empty() {
		return ErrNoChanges
	}
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		args = append(args, *u.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if u.Price != nil {
		args = append(args, *u.Price)
		sets = append(sets, fmt.Sprintf("price_per_kg = $%d", len(args)))
	}
	if u.Available != nil {
		args = append(args, *u.Available)
		sets = append(sets, fmt.Sprintf("is_available = $%d", len(args)))
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		return fmt.Errorf("update product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes the product row. Historical order items keep their
// product_id and name snapshot.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
