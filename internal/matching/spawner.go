package matching

import (
	"context"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/gateway"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// spawnExitOrders creates the dependent take-profit and stop-loss orders for
// a just-executed parent. Children take the opposite side and the executed
// quantity, link back via parent_order_id and re-enter the pipeline through
// the normal add-order path. Spawning is best effort: a failed child is
// logged and the parent stays executed.
func (e *Engine) spawnExitOrders(ctx context.Context, parent *types.Order, result *gateway.TradeResult) {
	if parent.TakeProfit == nil && parent.StopLoss == nil {
		return
	}

	logger := e.logger.With().Str("parent_order_id", parent.OrderID).Logger()

	if parent.TakeProfit != nil {
		tp := &types.Order{
			UserID:        parent.UserID,
			Symbol:        parent.Symbol,
			Side:          parent.Side.Opposite(),
			OrderType:     types.OrderTypeLimit,
			Quantity:      result.ExecutedQuantity,
			Price:         parent.TakeProfit,
			ParentOrderID: parent.OrderID,
			OrderCategory: types.CategoryTakeProfit,
			Source:        types.SourceAutoExit,
		}
		if childID, err := e.store.AddOrder(ctx, tp); err != nil {
			logger.Error().Err(err).Msg("failed to spawn take-profit order")
		} else {
			logger.Info().
				Str("order_id", childID).
				Float64("price", *parent.TakeProfit).
				Msg("spawned take-profit order")
		}
	}

	if parent.StopLoss != nil {
		sl := &types.Order{
			UserID:        parent.UserID,
			Symbol:        parent.Symbol,
			Side:          parent.Side.Opposite(),
			OrderType:     types.OrderTypeStop,
			Quantity:      result.ExecutedQuantity,
			StopPrice:     parent.StopLoss,
			ParentOrderID: parent.OrderID,
			OrderCategory: types.CategoryStopLoss,
			Source:        types.SourceAutoExit,
		}
		if childID, err := e.store.AddOrder(ctx, sl); err != nil {
			logger.Error().Err(err).Msg("failed to spawn stop-loss order")
		} else {
			logger.Info().
				Str("order_id", childID).
				Float64("stop_price", *parent.StopLoss).
				Msg("spawned stop-loss order")
		}
	}
}
