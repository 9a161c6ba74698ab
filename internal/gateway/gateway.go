// Package gateway defines the trading gateway consumed by the matching
// engine: a narrow capability to read a current price and submit a trade.
// The real exchange connectivity lives behind this interface; the bundled
// implementation simulates a set of venues.
package gateway

import (
	"context"
	"errors"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// ErrPriceUnavailable is returned when no current price is known for a
// symbol. Limit and stop orders are simply not eligible on that tick.
var ErrPriceUnavailable = errors.New("price unavailable")

// TradeRequest describes a trade to submit to an exchange.
type TradeRequest struct {
	Symbol    string
	Side      types.Side
	Quantity  float64
	OrderType types.OrderType
	Price     *float64
	StopPrice *float64
}

// TradeResult is the outcome of a trade submission.
type TradeResult struct {
	Success          bool
	TradeID          string
	ExecutedPrice    float64
	ExecutedQuantity float64
	Error            string
}

// Gateway is the external trading capability.
type Gateway interface {
	// GetCurrentPrice returns the latest price for a symbol, or
	// ErrPriceUnavailable when the symbol is unknown.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// ExecuteTrade submits a trade. A non-nil error means the call itself
	// failed; a result with Success == false carries the venue's rejection.
	ExecuteTrade(ctx context.Context, req *TradeRequest) (*TradeResult, error)
}
