package types

// CreateOrderRequest is the body of POST /orders/create.
type CreateOrderRequest struct {
	UserID           string    `json:"user_id" binding:"required"`
	Symbol           string    `json:"symbol" binding:"required"`
	Side             Side      `json:"side" binding:"required"`
	OrderType        OrderType `json:"order_type" binding:"required"`
	Quantity         float64   `json:"quantity" binding:"required,gt=0"`
	Price            *float64  `json:"price"`
	StopPrice        *float64  `json:"stop_price"`
	TriggerCondition string    `json:"trigger_condition"`
	StrategyMatch    string    `json:"strategy_match"`
	SignalSource     string    `json:"signal_source"`
	TakeProfit       *float64  `json:"take_profit"`
	StopLoss         *float64  `json:"stop_loss"`
	Notes            string    `json:"notes"`
	Tags             string    `json:"tags"`
}

// Order builds the order record for a create request. Status and identifiers
// are assigned by the store.
func (r *CreateOrderRequest) Order() *Order {
	return &Order{
		UserID:           r.UserID,
		Symbol:           r.Symbol,
		Side:             r.Side,
		OrderType:        r.OrderType,
		Quantity:         r.Quantity,
		Price:            r.Price,
		StopPrice:        r.StopPrice,
		TriggerCondition: r.TriggerCondition,
		StrategyMatch:    r.StrategyMatch,
		SignalSource:     r.SignalSource,
		TakeProfit:       r.TakeProfit,
		StopLoss:         r.StopLoss,
		Notes:            r.Notes,
		Tags:             r.Tags,
		OrderCategory:    CategoryNormal,
	}
}

// TradingViewAlert is the body of POST /webhooks/tradingview.
type TradingViewAlert struct {
	Symbol     string                 `json:"symbol" binding:"required"`
	Action     SignalAction           `json:"action" binding:"required"`
	Price      float64                `json:"price" binding:"required"`
	Quantity   *float64               `json:"quantity"`
	Strategy   string                 `json:"strategy"`
	Timeframe  string                 `json:"timeframe"`
	Timestamp  string                 `json:"timestamp"`
	Indicators map[string]interface{} `json:"indicators"`
	AlertName  string                 `json:"alert_name"`
	Interval   string                 `json:"interval"`
}
