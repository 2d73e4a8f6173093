package services

import (
	"errors"

	"market-telegram/db"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateProduct  = errors.New("product name already exists")
	ErrProductNotFound   = errors.New("product not found")
	ErrNoChanges         = errors.New("no fields to update")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidQuantity   = errors.New("quantity must be a positive number")
	ErrInvalidPrice      = errors.New("price must be a positive number")
	ErrInvalidIndex      = errors.New("cart index out of range")
)

// Store is the catalog, order and user store over one pgx connection source.
// It is safe for concurrent use; every method is a single statement or a
// single transaction.
type Store struct {
	db db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
