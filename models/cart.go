package models

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// CartLine 代表購物車中的單個商品項目
type CartLine struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	StockLimit int             `json:"stock_limit"`
	Size       string          `json:"size"`
	Color      string          `json:"color"`
	ImageURL   string          `json:"image_url"`
}

// Subtotal 單價乘以數量
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AtStockLimit reports whether the quantity already reached the stock bound.
// A zero stock limit means the backend did not report one.
func (l CartLine) AtStockLimit() bool {
	return l.StockLimit > 0 && l.Quantity >= l.StockLimit
}

// Totals 代表結帳金額
type Totals struct {
	Currency currency.Unit   `json:"-"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// CurrencyCode is the ISO code of Currency, used when Totals is serialized.
func (t Totals) CurrencyCode() string {
	return t.Currency.String()
}
