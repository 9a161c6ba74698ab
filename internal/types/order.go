package types

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the reverse side, used when spawning exit orders.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType determines how an order becomes eligible for execution.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// Valid reports whether the order type is one of the known values.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		return true
	}
	return false
}

// RequiresPrice reports whether the order type needs a limit price.
func (t OrderType) RequiresPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit
}

// RequiresStopPrice reports whether the order type needs a stop price.
func (t OrderType) RequiresStopPrice() bool {
	return t == OrderTypeStop || t == OrderTypeStopLimit
}

// OrderStatus is the lifecycle state of an order. Every order is in exactly
// one state at all times; executed, failed and cancelled are terminal.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusMatched   OrderStatus = "matched"
	StatusExecuted  OrderStatus = "executed"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transitions may leave this state.
func (s OrderStatus) Terminal() bool {
	return s == StatusExecuted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusExecuted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo implements the fixed transition table: pending orders can be
// matched, failed or cancelled; matched orders can be executed, failed or
// cancelled; nothing ever re-enters pending and terminal states are immutable.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusMatched || next == StatusFailed || next == StatusCancelled
	case StatusMatched:
		return next == StatusExecuted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// OrderCategory distinguishes user-submitted orders from auto-spawned exits.
type OrderCategory string

const (
	CategoryNormal     OrderCategory = "normal"
	CategoryTakeProfit OrderCategory = "take_profit"
	CategoryStopLoss   OrderCategory = "stop_loss"
)

// SourceAutoExit marks orders created by the exit-order spawner.
const SourceAutoExit = "auto_exit"

var (
	ErrMissingPrice     = errors.New("price is required for limit and stop_limit orders")
	ErrMissingStopPrice = errors.New("stop_price is required for stop and stop_limit orders")
)

// Order is a request to trade a quantity of a symbol, possibly conditional on
// price levels or on a matching external signal.
type Order struct {
	gorm.Model       `json:"-"`
	OrderID          string        `gorm:"uniqueIndex" json:"order_id"`
	UserID           string        `gorm:"index" json:"user_id"`
	Symbol           string        `gorm:"index" json:"symbol"`
	Side             Side          `json:"side"`
	OrderType        OrderType     `json:"order_type"`
	Quantity         float64       `json:"quantity"`
	Price            *float64      `json:"price,omitempty"`
	StopPrice        *float64      `json:"stop_price,omitempty"`
	TakeProfit       *float64      `json:"take_profit,omitempty"`
	StopLoss         *float64      `json:"stop_loss,omitempty"`
	TriggerCondition string        `json:"trigger_condition,omitempty"`
	StrategyMatch    string        `json:"strategy_match,omitempty"`
	SignalSource     string        `json:"signal_source,omitempty"`
	ParentOrderID    string        `gorm:"index" json:"parent_order_id,omitempty"`
	OrderCategory    OrderCategory `json:"order_category"`
	Source           string        `json:"source,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Tags             string        `json:"tags,omitempty"`
	Status           OrderStatus   `gorm:"index" json:"status"`
	ExecutedPrice    *float64      `json:"executed_price,omitempty"`
	ExecutedQuantity *float64      `json:"executed_quantity,omitempty"`
	TradeID          string        `json:"trade_id,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	ExecutedAt       *time.Time    `json:"executed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Validate enforces the conditional field requirements for an incoming order.
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return errors.New("symbol is required")
	}
	if !o.Side.Valid() {
		return fmt.Errorf("invalid side %q", o.Side)
	}
	if !o.OrderType.Valid() {
		return fmt.Errorf("invalid order_type %q", o.OrderType)
	}
	if o.Quantity <= 0 {
		return errors.New("quantity must be greater than zero")
	}
	if o.OrderType.RequiresPrice() && o.Price == nil {
		return ErrMissingPrice
	}
	if o.OrderType.RequiresStopPrice() && o.StopPrice == nil {
		return ErrMissingStopPrice
	}
	return nil
}

// SignalGated reports whether the order waits on an external signal rather
// than (or in addition to) a price level.
func (o *Order) SignalGated() bool {
	return o.TriggerCondition != "" || o.StrategyMatch != "" || o.SignalSource != ""
}
