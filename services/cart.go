package services

import (
	"errors"
	"strings"

	"market-telegram/models"

	"github.com/shopspring/decimal"
)

// Largest values the order_items and products columns can hold:
// quantity_kg NUMERIC(12,3) and price NUMERIC(12,2).
var (
	MaxQuantity = decimal.RequireFromString("999999999.999")
	MaxPrice    = decimal.RequireFromString("9999999999.99")
)

// ProductSnapshot is a product as it looked when the customer selected it.
// The price stays fixed even if the catalog changes afterwards.
type ProductSnapshot struct {
	ID         int64
	Name       string
	PricePerKg decimal.Decimal
}

func SnapshotOf(p models.Product) ProductSnapshot {
	return ProductSnapshot{ID: p.ID, Name: p.Name, PricePerKg: p.PricePerKg}
}

type CartItem struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(i.Quantity)
}

// Cart is the unpersisted list of selections; at most one entry per product.
type Cart struct {
	Items []CartItem
}

// Add merges qty into the entry for the product, appending a new entry if the
// product is not in the cart yet. A merged quantity above MaxQuantity is
// rejected and leaves the cart unchanged.
func (c *Cart) Add(p ProductSnapshot, qty decimal.Decimal) error {
	if !qty.IsPositive() || qty.GreaterThan(MaxQuantity) {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			merged := c.Items[i].Quantity.Add(qty)
			if merged.GreaterThan(MaxQuantity) {
				return ErrInvalidQuantity
			}
			c.Items[i].Quantity = merged
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.PricePerKg,
		Quantity:  qty,
	})
	return nil
}

// Remove drops the entry at index i. Out of range is a no-op reported as
// ErrInvalidIndex.
func (c *Cart) Remove(i int) (CartItem, error) {
	if i < 0 || i >= len(c.Items) {
		return CartItem{}, ErrInvalidIndex
	}
	removed := c.Items[i]
	c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
	return removed, nil
}

// Total is recomputed on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) Len() int    { return len(c.Items) }
func (c *Cart) Empty() bool { return len(c.Items) == 0 }
func (c *Cart) Clear()      { c.Items = nil }

// ParseQuantity parses a positive weight in kg. A comma is accepted as the
// decimal separator; the value is rounded to grams.
func ParseQuantity(s string) (decimal.Decimal, error) {
	d, err := parsePositive(s, 3, MaxQuantity)
	if err != nil {
		return decimal.Zero, ErrInvalidQuantity
	}
	return d, nil
}

// ParsePrice parses a positive price rounded to cents.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := parsePositive(s, 2, MaxPrice)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

// errOutOfRange is mapped to the caller's sentinel by ParseQuantity/ParsePrice.
var errOutOfRange = errors.New("value out of range")

// parsePositive accepts plain decimal notation only; exponents such as "1e3"
// are rejected. The rounded value must lie in (0, limit].
func parsePositive(s string, places int32, limit decimal.Decimal) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, errOutOfRange
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	d = d.Round(places)
	if !d.IsPositive() || d.GreaterThan(limit) {
		return decimal.Zero, errOutOfRange
	}
	return d, nil
}

// FormatAmount renders money with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatWeight renders a weight without trailing zeros ("1.5", "2").
func FormatWeight(d decimal.Decimal) string {
	return d.String()
}
