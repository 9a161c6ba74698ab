package matching

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/gateway"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// Config tunes the matching engine.
type Config struct {
	PollInterval   time.Duration // time between poll ticks
	PollBatchSize  int           // max pending orders evaluated per tick
	SignalLookback int           // recent signals consulted per evaluation
	TriggerPolicy  TriggerPolicy // price/signal combination for gated orders
	GatewayTimeout time.Duration // bound on a single gateway call
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.PollBatchSize <= 0 {
		c.PollBatchSize = 50
	}
	if c.SignalLookback <= 0 {
		c.SignalLookback = 10
	}
	if !c.TriggerPolicy.Valid() {
		c.TriggerPolicy = TriggerAny
	}
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 10 * time.Second
	}
}

// Engine drives the order lifecycle. Two entry points feed it: the poll loop
// evaluating pending orders on a ticker, and TriggerSignal reacting to a
// freshly ingested signal. Both funnel into ExecuteOrder, which claims the
// order through the store's atomic pending -> matched transition so the
// gateway is called at most once per order even when the paths race.
type Engine struct {
	store     store.Store
	gateway   gateway.Gateway
	evaluator *Evaluator
	cfg       Config
	logger    zerolog.Logger
}

// NewEngine wires the engine to its store and gateway.
func NewEngine(st store.Store, gw gateway.Gateway, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		store:     st,
		gateway:   gw,
		evaluator: NewEvaluator(st, gw, cfg.SignalLookback, cfg.TriggerPolicy),
		cfg:       cfg,
		logger:    log.With().Str("component", "matching_engine").Logger(),
	}
}

// Evaluator exposes the engine's evaluator, mainly for the poll path tests.
func (e *Engine) Evaluator() *Evaluator {
	return e.evaluator
}

// Start runs the poll loop until the context is cancelled. A failed iteration
// is logged and followed by a backoff pause; it never stops the loop. The
// stop signal is only honoured at iteration boundaries, never mid-batch.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info().
		Dur("poll_interval", e.cfg.PollInterval).
		Int("batch_size", e.cfg.PollBatchSize).
		Str("trigger_policy", string(e.cfg.TriggerPolicy)).
		Msg("starting matching engine")

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("shutting down matching engine")
			return
		case <-ticker.C:
			if err := e.pollOnce(ctx); err != nil {
				e.logger.Error().Err(err).Msg("poll iteration failed, backing off")
				select {
				case <-ctx.Done():
					e.logger.Info().Msg("shutting down matching engine")
					return
				case <-time.After(e.cfg.PollInterval * 4):
				}
			}
		}
	}
}

// pollOnce evaluates one batch of pending orders. An error from a single
// order's evaluation or execution is logged and does not abort the rest of
// the batch; only a failure to fetch the batch itself is returned.
func (e *Engine) pollOnce(ctx context.Context) error {
	orders, err := e.store.GetPendingOrders(ctx, e.cfg.PollBatchSize)
	if err != nil {
		return err
	}

	for _, order := range orders {
		eligible, err := e.evaluator.ShouldExecute(ctx, order)
		if err != nil {
			e.logger.Warn().
				Str("order_id", order.OrderID).
				Err(err).
				Msg("order evaluation failed, skipping")
			continue
		}
		if !eligible {
			continue
		}
		if err := e.ExecuteOrder(ctx, order); err != nil {
			e.logger.Warn().
				Str("order_id", order.OrderID).
				Err(err).
				Msg("order execution attempt failed")
		}
	}
	return nil
}

// TriggerSignal is the reactive path: coarse-filter pending orders against
// the signal, confirm each with the predicate and execute the matches.
func (e *Engine) TriggerSignal(ctx context.Context, signal *types.Signal) error {
	side, ok := signalSide(signal.Action)
	if !ok {
		e.logger.Debug().
			Str("signal_id", signal.SignalID).
			Str("action", string(signal.Action)).
			Msg("signal action triggers no orders")
		return nil
	}

	candidates, err := e.store.FindMatchingOrders(ctx, store.MatchCriteria{
		Symbol:   signal.Symbol,
		Side:     side,
		Strategy: signal.Strategy,
		Source:   signal.Source,
	})
	if err != nil {
		return err
	}

	e.logger.Debug().
		Str("signal_id", signal.SignalID).
		Str("symbol", signal.Symbol).
		Int("candidates", len(candidates)).
		Msg("evaluating signal against pending orders")

	for _, order := range candidates {
		if !SignalMatchesOrder(signal, order) {
			continue
		}
		if err := e.ExecuteOrder(ctx, order); err != nil {
			e.logger.Warn().
				Str("order_id", order.OrderID).
				Str("signal_id", signal.SignalID).
				Err(err).
				Msg("signal-triggered execution failed")
		}
	}
	return nil
}

// ExecuteOrder claims the order and submits it to the gateway. The claim is
// the at-most-once guard: whichever caller wins the pending -> matched
// transition proceeds; everyone else backs off silently. A gateway failure
// or timeout marks the order failed; there are no retries at this layer.
func (e *Engine) ExecuteOrder(ctx context.Context, order *types.Order) error {
	claimed, err := e.store.ClaimOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if !claimed {
		e.logger.Debug().
			Str("order_id", order.OrderID).
			Msg("order already claimed, skipping")
		return nil
	}

	logger := e.logger.With().
		Str("order_id", order.OrderID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("order_type", string(order.OrderType)).
		Logger()
	logger.Info().Msg("executing order")

	gwCtx, cancel := context.WithTimeout(ctx, e.cfg.GatewayTimeout)
	defer cancel()

	result, err := e.gateway.ExecuteTrade(gwCtx, &gateway.TradeRequest{
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		OrderType: order.OrderType,
		Price:     order.Price,
		StopPrice: order.StopPrice,
	})
	if err != nil || !result.Success {
		msg := "trade execution failed"
		if err != nil {
			msg = err.Error()
		} else if result.Error != "" {
			msg = result.Error
		}
		logger.Warn().Str("error", msg).Msg("marking order failed")
		if updErr := e.store.UpdateOrderStatus(ctx, order.OrderID, types.StatusFailed, &store.Update{
			ErrorMessage: msg,
		}); updErr != nil {
			logger.Error().Err(updErr).Msg("failed to record order failure")
			return updErr
		}
		return nil
	}

	executedAt := time.Now()
	if err := e.store.UpdateOrderStatus(ctx, order.OrderID, types.StatusExecuted, &store.Update{
		ExecutedPrice:    &result.ExecutedPrice,
		ExecutedQuantity: &result.ExecutedQuantity,
		TradeID:          result.TradeID,
		ExecutedAt:       &executedAt,
	}); err != nil {
		logger.Error().Err(err).Msg("failed to record execution")
		return err
	}

	logger.Info().
		Str("trade_id", result.TradeID).
		Float64("executed_price", result.ExecutedPrice).
		Float64("executed_quantity", result.ExecutedQuantity).
		Msg("order executed")

	e.spawnExitOrders(ctx, order, result)
	return nil
}
