package matching

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/gateway"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// TriggerPolicy decides how price eligibility and signal matching combine for
// orders that carry both a price level and signal constraints. The original
// system behaved like TriggerAny; the policy is explicit configuration here.
type TriggerPolicy string

const (
	// TriggerAny executes when either the price condition or a recent
	// matching signal fires.
	TriggerAny TriggerPolicy = "any"
	// TriggerAll requires the price condition and a recent matching signal.
	TriggerAll TriggerPolicy = "all"
)

// Valid reports whether the policy is one of the known values.
func (p TriggerPolicy) Valid() bool {
	return p == TriggerAny || p == TriggerAll
}

// Evaluator decides whether a pending order should fire right now.
type Evaluator struct {
	store    store.Store
	gateway  gateway.Gateway
	lookback int
	policy   TriggerPolicy
}

// NewEvaluator builds an evaluator. lookback is how many recent signals a
// signal-gated order is checked against on each tick.
func NewEvaluator(st store.Store, gw gateway.Gateway, lookback int, policy TriggerPolicy) *Evaluator {
	if lookback <= 0 {
		lookback = 10
	}
	if !policy.Valid() {
		policy = TriggerAny
	}
	return &Evaluator{store: st, gateway: gw, lookback: lookback, policy: policy}
}

// ShouldExecute reports whether the order is eligible for execution given the
// current price and, for signal-gated orders, the recent signal window.
// A store failure surfaces as an error; an unavailable price only makes the
// price leg ineligible.
func (e *Evaluator) ShouldExecute(ctx context.Context, order *types.Order) (bool, error) {
	priceEligible, err := e.priceEligible(ctx, order)
	if err != nil {
		return false, err
	}

	if !order.SignalGated() {
		return priceEligible, nil
	}

	signalEligible, err := e.signalEligible(ctx, order)
	if err != nil {
		return false, err
	}

	if e.policy == TriggerAll {
		return priceEligible && signalEligible, nil
	}
	return priceEligible || signalEligible, nil
}

// priceEligible evaluates the price leg of the trigger. Comparisons are
// inclusive: a current price exactly at the boundary fires.
func (e *Evaluator) priceEligible(ctx context.Context, order *types.Order) (bool, error) {
	if order.OrderType == types.OrderTypeMarket {
		return true, nil
	}

	current, err := e.gateway.GetCurrentPrice(ctx, order.Symbol)
	if err != nil {
		log.Debug().
			Str("order_id", order.OrderID).
			Str("symbol", order.Symbol).
			Err(err).
			Msg("current price unavailable, price leg not eligible")
		return false, nil
	}

	switch order.OrderType {
	case types.OrderTypeLimit:
		if order.Price == nil {
			return false, nil
		}
		if order.Side == types.SideBuy {
			return current <= *order.Price, nil
		}
		return current >= *order.Price, nil

	case types.OrderTypeStop:
		if order.StopPrice == nil {
			return false, nil
		}
		if order.Side == types.SideBuy {
			return current >= *order.StopPrice, nil
		}
		return current <= *order.StopPrice, nil

	case types.OrderTypeStopLimit:
		// Stop leg triggers, limit leg caps the acceptable price.
		if order.StopPrice == nil || order.Price == nil {
			return false, nil
		}
		if order.Side == types.SideBuy {
			return current >= *order.StopPrice && current <= *order.Price, nil
		}
		return current <= *order.StopPrice && current >= *order.Price, nil
	}
	return false, nil
}

// signalEligible checks the recent signal window against the order's
// constraints via the matching predicate.
func (e *Evaluator) signalEligible(ctx context.Context, order *types.Order) (bool, error) {
	signals, err := e.store.GetRecentSignals(ctx, e.lookback)
	if err != nil {
		return false, err
	}
	for _, signal := range signals {
		if SignalMatchesOrder(signal, order) {
			return true, nil
		}
	}
	return false, nil
}
