package models

import "github.com/shopspring/decimal"

type Product struct {
	ID          int64
	Name        string
	PricePerKg  decimal.Decimal
	IsAvailable bool
}

// ProductUpdate is a partial update: nil fields are left untouched.
type ProductUpdate struct {
	Name      *string
	Price     *decimal.Decimal
	Available *bool
}

func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Price == nil && u.Available == nil
}
