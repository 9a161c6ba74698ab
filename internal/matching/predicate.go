// Package matching implements the order matching core: the signal/order
// matching predicate, the per-order execution evaluator and the engine that
// drives both the periodic poll path and the signal-reactive path into a
// single claimed execution routine.
package matching

import (
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// SignalMatchesOrder reports whether a signal satisfies an order's trigger
// conditions. All checks are conjunctive; an unset constraint on the order
// means "don't care" for that dimension, which deliberately allows
// signal-agnostic orders.
func SignalMatchesOrder(signal *types.Signal, order *types.Order) bool {
	if signal == nil || order == nil {
		return false
	}
	if signal.Symbol != order.Symbol {
		return false
	}

	switch signal.Action {
	case types.ActionBuy, "long":
		if order.Side != types.SideBuy {
			return false
		}
	case types.ActionSell, "short":
		if order.Side != types.SideSell {
			return false
		}
	default:
		// close and anything unrecognized never match a directional order
		return false
	}

	if order.StrategyMatch != "" && signal.Strategy != order.StrategyMatch {
		return false
	}
	if order.SignalSource != "" && signal.Source != order.SignalSource {
		return false
	}
	return true
}

// signalSide maps a signal action onto the order side it can trigger.
// The bool is false for actions that trigger nothing (e.g. close).
func signalSide(action types.SignalAction) (types.Side, bool) {
	switch action {
	case types.ActionBuy, "long":
		return types.SideBuy, true
	case types.ActionSell, "short":
		return types.SideSell, true
	}
	return "", false
}
