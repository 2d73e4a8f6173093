package services

import (
	"context"
	"fmt"

	"market-telegram/models"

	"github.com/shopspring/decimal"
)

// OrderWriter persists an order and its items atomically.
type OrderWriter interface {
	CreateOrder(ctx context.Context, in models.NewOrder) (int64, error)
}

type Customer struct {
	ID       int64
	Name     string
	Username string
}

type CheckoutOutcome int

const (
	CheckoutPlaced CheckoutOutcome = iota
	CheckoutEmptyCart
	CheckoutSaveFailed
)

func (o CheckoutOutcome) String() string {
	switch o {
	case CheckoutPlaced:
		return "placed"
	case CheckoutEmptyCart:
		return "empty_cart"
	case CheckoutSaveFailed:
		return "save_failed"
	default:
		return "unknown"
	}
}

type CheckoutResult struct {
	Outcome CheckoutOutcome
	OrderID int64
	Total   decimal.Decimal
	Items   []CartItem // the cart as it was placed
}

// Checkout turns the cart into a persisted order. An empty cart never reaches
// the writer. The cart is cleared only after the order is stored; on a save
// failure it is left intact so the customer can retry.
func Checkout(ctx context.Context, w OrderWriter, c Customer, cart *Cart) (CheckoutResult, error) {
	if cart.Empty() {
		return CheckoutResult{Outcome: CheckoutEmptyCart}, nil
	}
	total := cart.Total()
	items := make([]CartItem, len(cart.Items))
	copy(items, cart.Items)

	in := models.NewOrder{
		UserID:   c.ID,
		UserName: c.Name,
		Total:    total,
		Items:    make([]models.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		in.Items = append(in.Items, models.OrderItem{
			ProductID:    it.ProductID,
			ProductName:  it.Name,
			QuantityKg:   it.Quantity,
			PriceAtOrder: it.UnitPrice,
		})
	}

	id, err := w.CreateOrder(ctx, in)
	if err != nil {
		return CheckoutResult{Outcome: CheckoutSaveFailed, Total: total}, fmt.Errorf("save order: %w", err)
	}
	cart.Clear()
	return CheckoutResult{Outcome: CheckoutPlaced, OrderID: id, Total: total, Items: items}, nil
}
