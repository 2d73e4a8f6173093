package services

import (
	"context"
	"errors"
	"fmt"

	"market-telegram/models"

	"github.com/jackc/pgx/v5"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCompleted = "completed"
)

// ValidStatusTransition reports whether an order may move from one status to
// another. Orders never move backwards.
func ValidStatusTransition(from, to string) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusConfirmed || to == OrderStatusCompleted
	case OrderStatusConfirmed:
		return to == OrderStatusCompleted
	default:
		return false
	}
}

// CreateOrder inserts the order row and all of its items in one transaction.
func (s *Store) CreateOrder(ctx context.Context, in models.NewOrder) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (user_id, user_name, total_price, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			in.UserID, in.UserName, in.Total, OrderStatusPending,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, it := range in.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, quantity_kg, price_at_order)
				VALUES ($1, $2, $3, $4, $5)`,
				id, it.ProductID, it.ProductName, it.QuantityKg, it.PriceAtOrder,
			)
			if err != nil {
				return fmt.Errorf("insert order item %d: %w", it.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Item descriptions prefer the name captured at order time, then the live
// product, then "?" for rows whose product is gone.
const orderSummarySelect = `
	SELECT o.id, o.user_id, o.user_name, o.order_date, o.total_price, o.status,
		COALESCE(string_agg(
			COALESCE(NULLIF(oi.product_name, ''), p.name, '?') || ' (' || trim_scale(oi.quantity_kg)::text || ' kg)',
			', ' ORDER BY oi.id), '')
	FROM orders o
	LEFT JOIN order_items oi ON oi.order_id = o.id
	LEFT JOIN products p ON p.id = oi.product_id
	%s
	GROUP BY o.id
	ORDER BY o.order_date DESC, o.id DESC`

func (s *Store) ListUserOrders(ctx context.Context, userID int64) ([]models.OrderSummary, error) {
	return s.listOrders(ctx, fmt.Sprintf(orderSummarySelect, "WHERE o.user_id = $1"), userID)
}

func (s *Store) ListAllOrders(ctx context.Context) ([]models.OrderSummary, error) {
	return s.listOrders(ctx, fmt.Sprintf(orderSummarySelect, ""))
}

func (s *Store) listOrders(ctx context.Context, sql string, args ...any) ([]models.OrderSummary, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrderSummary
	for rows.Next() {
		var o models.OrderSummary
		if err := rows.Scan(&o.ID, &o.UserID, &o.UserName, &o.Date, &o.Total, &o.Status, &o.Items); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ShoppingList sums ordered weight per product over orders that still need
// fulfilling (pending and confirmed), ascending by name.
func (s *Store) ShoppingList(ctx context.Context) ([]models.ShoppingListItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(NULLIF(oi.product_name, ''), p.name, '?') AS name, SUM(oi.quantity_kg)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.status IN ($1, $2)
		GROUP BY 1
		ORDER BY 1`,
		OrderStatusPending, OrderStatusConfirmed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ShoppingListItem
	for rows.Next() {
		var it models.ShoppingListItem
		if err := rows.Scan(&it.Name, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// DeleteCompletedOrders removes completed orders and their items atomically.
// Zero means there was nothing to delete; failures are reported as errors.
func (s *Store) DeleteCompletedOrders(ctx context.Context) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM order_items
			WHERE order_id IN (SELECT id FROM orders WHERE status = $1)`,
			OrderStatusCompleted,
		); err != nil {
			return fmt.Errorf("delete completed order items: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE status = $1`, OrderStatusCompleted)
		if err != nil {
			return fmt.Errorf("delete completed orders: %w", err)
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// MarkOrderCompleted moves a pending or confirmed order to completed.
func (s *Store) MarkOrderCompleted(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return err
		}
		if !ValidStatusTransition(status, OrderStatusCompleted) {
			return ErrInvalidTransition
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, OrderStatusCompleted, id)
		return err
	})
}
