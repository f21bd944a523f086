package enum

// CartEventType 表示購物車狀態變更的種類
type CartEventType string

const (
	CartEventReloaded         CartEventType = "reloaded"
	CartEventItemAdded        CartEventType = "item_added"
	CartEventQuantityChanged  CartEventType = "quantity_changed"
	CartEventItemRemoved      CartEventType = "item_removed"
	CartEventRolledBack       CartEventType = "rolled_back"
	CartEventSelectionChanged CartEventType = "selection_changed"
	CartEventImageSettled     CartEventType = "image_settled"
	CartEventVisibility       CartEventType = "visibility"
	CartEventPending          CartEventType = "pending"
)

// Published reports whether the event is forwarded to the message bus.
// Pure UI bookkeeping stays local.
func (t CartEventType) Published() bool {
	switch t {
	case CartEventReloaded, CartEventItemAdded, CartEventQuantityChanged, CartEventItemRemoved, CartEventRolledBack:
		return true
	default:
		return false
	}
}
