package matching

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

func newTestEngine(t *testing.T, gw *stubGateway) (*Engine, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewEngine(st, gw, Config{}), st
}

func TestExecuteOrderSuccess(t *testing.T) {
	gw := &stubGateway{price: 44000}
	engine, st := newTestEngine(t, gw)
	ctx := context.Background()

	order := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  0.1,
	})

	require.NoError(t, engine.ExecuteOrder(ctx, order))

	stored, err := st.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusExecuted, stored.Status)
	require.NotNil(t, stored.ExecutedPrice)
	require.Equal(t, "TRD-TEST", stored.TradeID)
	require.NotNil(t, stored.ExecutedAt)
	require.EqualValues(t, 1, gw.calls())
}

func TestExecuteOrderGatewayFailure(t *testing.T) {
	gw := &stubGateway{failTrade: true}
	engine, st := newTestEngine(t, gw)
	ctx := context.Background()

	order := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  0.1,
	})

	require.NoError(t, engine.ExecuteOrder(ctx, order))

	stored, err := st.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusFailed, stored.Status)
	require.Equal(t, "insufficient margin", stored.ErrorMessage)
}

func TestExecuteOrderAtMostOnce(t *testing.T) {
	// The poll path and the reactive path can both see the same pending
	// order; the claim must let exactly one of them reach the gateway.
	gw := &stubGateway{price: 44000}
	engine, _ := newTestEngine(t, gw)
	ctx := context.Background()

	order := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  0.1,
	})

	const racers = 8
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.ExecuteOrder(ctx, order)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, gw.calls(), "gateway must be called at most once per order")
}

func TestExecuteOrderSpawnsExitOrders(t *testing.T) {
	gw := &stubGateway{price: 44000}
	engine, st := newTestEngine(t, gw)
	ctx := context.Background()

	parent := addPendingOrder(t, engine.store, &types.Order{
		Symbol:     "BTCUSDT",
		Side:       types.SideBuy,
		OrderType:  types.OrderTypeMarket,
		Quantity:   0.1,
		TakeProfit: floatPtr(46000),
		StopLoss:   floatPtr(43000),
	})

	require.NoError(t, engine.ExecuteOrder(ctx, parent))

	pending, err := st.GetPendingOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var tp, sl *types.Order
	for _, child := range pending {
		switch child.OrderCategory {
		case types.CategoryTakeProfit:
			tp = child
		case types.CategoryStopLoss:
			sl = child
		}
	}

	require.NotNil(t, tp, "take-profit child missing")
	require.Equal(t, types.SideSell, tp.Side)
	require.Equal(t, types.OrderTypeLimit, tp.OrderType)
	require.Equal(t, 46000.0, *tp.Price)
	require.Equal(t, 0.1, tp.Quantity)
	require.Equal(t, parent.OrderID, tp.ParentOrderID)
	require.Equal(t, types.SourceAutoExit, tp.Source)

	require.NotNil(t, sl, "stop-loss child missing")
	require.Equal(t, types.SideSell, sl.Side)
	require.Equal(t, types.OrderTypeStop, sl.OrderType)
	require.Equal(t, 43000.0, *sl.StopPrice)
	require.Equal(t, 0.1, sl.Quantity)
	require.Equal(t, parent.OrderID, sl.ParentOrderID)
}

func TestTriggerSignalExecutesMatchingOrders(t *testing.T) {
	gw := &stubGateway{price: 44000}
	engine, st := newTestEngine(t, gw)
	ctx := context.Background()

	match := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  0.1,
	})
	other := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "ETHUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  1,
	})

	require.NoError(t, engine.TriggerSignal(ctx, &types.Signal{
		SignalID: "SIG_test",
		Symbol:   "BTCUSDT",
		Action:   types.ActionBuy,
		Price:    45000,
	}))

	executed, err := st.GetOrder(ctx, match.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusExecuted, executed.Status)

	untouched, err := st.GetOrder(ctx, other.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusPending, untouched.Status)
}

func TestTriggerSignalCloseActionIsIgnored(t *testing.T) {
	gw := &stubGateway{price: 44000}
	engine, _ := newTestEngine(t, gw)

	addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  0.1,
	})

	require.NoError(t, engine.TriggerSignal(context.Background(), &types.Signal{
		Symbol: "BTCUSDT",
		Action: types.ActionClose,
		Price:  45000,
	}))
	require.EqualValues(t, 0, gw.calls())
}

func TestPollExecutesEligibleLimitOrder(t *testing.T) {
	// The end-to-end scenario: a limit buy at 44000 with the market at
	// exactly 44000 is boundary-eligible and must execute on a poll tick.
	gw := &stubGateway{price: 44000}
	engine, st := newTestEngine(t, gw)
	ctx := context.Background()

	order := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeLimit,
		Price:     floatPtr(44000),
		Quantity:  0.1,
	})

	require.NoError(t, engine.pollOnce(ctx))

	stored, err := st.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusExecuted, stored.Status)
	require.NotNil(t, stored.ExecutedPrice)
}

func TestPollSkipsIneligibleOrders(t *testing.T) {
	gw := &stubGateway{price: 45000}
	engine, st := newTestEngine(t, gw)
	ctx := context.Background()

	order := addPendingOrder(t, engine.store, &types.Order{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		OrderType: types.OrderTypeLimit,
		Price:     floatPtr(44000),
		Quantity:  0.1,
	})

	require.NoError(t, engine.pollOnce(ctx))

	stored, err := st.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusPending, stored.Status)
	require.EqualValues(t, 0, gw.calls())
}
