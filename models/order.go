package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	TelegramID   int64
	FirstName    string
	Username     string
	IsAdmin      bool
	LanguageCode string // empty when the user never picked one
}

// NewOrder is the input to an atomic order + items insert.
type NewOrder struct {
	UserID   int64
	UserName string
	Total    decimal.Decimal
	Items    []OrderItem
}

type OrderItem struct {
	ProductID    int64
	ProductName  string
	QuantityKg   decimal.Decimal
	PriceAtOrder decimal.Decimal
}

// OrderSummary is one row of the grouped order history views.
type OrderSummary struct {
	ID       int64
	UserID   int64
	UserName string
	Date     time.Time
	Total    decimal.Decimal
	Status   string
	Items    string // "Apples (2 kg), Pears (1.5 kg)"
}

type ShoppingListItem struct {
	Name     string
	Quantity decimal.Decimal
}
