package models

import (
	"time"

	"github.com/shopspring/decimal"

	"gofalre.io/storefront/models/enum"
)

// Order 代表訂單
type Order struct {
	ID        uint64           `json:"id"`
	Status    enum.OrderStatus `json:"status"`
	Currency  string           `json:"currency"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Tax       decimal.Decimal  `json:"tax"`
	Shipping  decimal.Decimal  `json:"shipping"`
	Total     decimal.Decimal  `json:"total"`
	Items     []OrderItem      `json:"items"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// OrderItem 代表訂單中的單個商品項目
type OrderItem struct {
	ID        uint64          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CanCancel 只有尚未出貨的訂單可以取消
func (o *Order) CanCancel() bool {
	switch o.Status {
	case enum.OrderStatusPending, enum.OrderStatusPaid, enum.OrderStatusProcessing:
		return true
	default:
		return false
	}
}
