package models

import (
	"time"

	"github.com/shopspring/decimal"

	"gofalre.io/storefront/models/enum"
)

// CartEvent 代表購物車狀態變更事件
type CartEvent struct {
	ID            string             `json:"id"`
	Type          enum.CartEventType `json:"type"`
	UserID        string             `json:"user_id,omitempty"`
	LineID        string             `json:"line_id,omitempty"`
	LineCount     int                `json:"line_count"`
	SelectedCount int                `json:"selected_count"`
	Currency      string             `json:"currency"`
	Total         decimal.Decimal    `json:"total"`
	OccurredAt    time.Time          `json:"occurred_at"`
}
