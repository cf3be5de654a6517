package domain

import (
	"github.com/jorgepalis/pymedesk/internal/currency"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type OrderUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OrderItemProduct is the product summary embedded in an order line. The
// API sends its price as a number, unlike catalog products.
type OrderItemProduct struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderItem struct {
	ID       int64            `json:"id"`
	Product  OrderItemProduct `json:"product"`
	Quantity int              `json:"quantity"`
	Subtotal string           `json:"subtotal"`
}

func (i OrderItem) SubtotalAmount() decimal.Decimal {
	return currency.ParsePrice(i.Subtotal)
}

type Order struct {
	ID         int64       `json:"id"`
	User       OrderUser   `json:"user"`
	Status     OrderStatus `json:"status"`
	TotalPrice string      `json:"total_price"`
	CreatedAt  string      `json:"created_at"`
	Items      []OrderItem `json:"items"`
}

func (o Order) Total() decimal.Decimal {
	return currency.ParsePrice(o.TotalPrice)
}

// ItemCount is the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

type CreateOrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderPayload struct {
	Items []CreateOrderItem `json:"items"`
}
