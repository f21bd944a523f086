package enum

// OrderStatus 表示訂單的狀態
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // 訂單已創建，等待付款
	OrderStatusPaid       OrderStatus = "paid"       // 訂單已支付
	OrderStatusProcessing OrderStatus = "processing" // 訂單處理中
	OrderStatusShipped    OrderStatus = "shipped"    // 已出貨
	OrderStatusCompleted  OrderStatus = "completed"  // 訂單完成，已交付
	OrderStatusCancelled  OrderStatus = "cancelled"  // 訂單取消
	OrderStatusRefunded   OrderStatus = "refunded"   // 訂單退款完成
)
