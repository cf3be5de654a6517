package domain

import (
	"github.com/jorgepalis/pymedesk/internal/currency"
	"github.com/shopspring/decimal"
)

// Product is a read-only copy of a catalog entry. Price travels as text.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

func (p Product) UnitPrice() decimal.Decimal {
	return currency.ParsePrice(p.Price)
}

// MaxQuantity is the largest quantity of p a cart may hold.
func (p Product) MaxQuantity() int {
	return max(0, p.Stock)
}

// ProductPayload is the body of product create and update requests.
type ProductPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}
