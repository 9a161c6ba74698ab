package types

import "time"

// WebhookResponse acknowledges a received TradingView alert.
type WebhookResponse struct {
	Status    string    `json:"status"`
	SignalID  string    `json:"signal_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateOrderResponse acknowledges a queued order.
type CreateOrderResponse struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// UserOrdersResponse lists a user's orders.
type UserOrdersResponse struct {
	UserID string   `json:"user_id"`
	Orders []*Order `json:"orders"`
	Total  int      `json:"total"`
}

// CancelOrderResponse acknowledges a cancelled order.
type CancelOrderResponse struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// QueueStatsResponse reports per-queue order counts.
type QueueStatsResponse struct {
	PendingOrders  int64     `json:"pending_orders"`
	MatchedOrders  int64     `json:"matched_orders"`
	ExecutedOrders int64     `json:"executed_orders"`
	FailedOrders   int64     `json:"failed_orders"`
	Timestamp      time.Time `json:"timestamp"`
}
