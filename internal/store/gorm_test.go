package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

func newTestGormStore(t *testing.T, signalTTL time.Duration) *GormStore {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Order{}, &types.Signal{}))

	return NewGormStore(db, signalTTL)
}

func pendingOrder(symbol string, side types.Side) *types.Order {
	price := 44000.0
	return &types.Order{
		UserID:    "user-1",
		Symbol:    symbol,
		Side:      side,
		OrderType: types.OrderTypeLimit,
		Quantity:  0.1,
		Price:     &price,
	}
}

func TestAddAndGetOrder(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	order := pendingOrder("BTCUSDT", types.SideBuy)
	orderID, err := st.AddOrder(ctx, order)
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	stored, err := st.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusPending, stored.Status)
	require.Equal(t, types.CategoryNormal, stored.OrderCategory)
	require.Equal(t, "BTCUSDT", stored.Symbol)

	missing, err := st.GetOrder(ctx, "ORD_missing")
	require.NoError(t, err)
	require.Nil(t, missing, "missing orders return nil, not an error")
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	orderID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)

	require.NoError(t, st.UpdateOrderStatus(ctx, orderID, types.StatusMatched, nil))

	price := 44100.0
	qty := 0.1
	now := time.Now()
	require.NoError(t, st.UpdateOrderStatus(ctx, orderID, types.StatusExecuted, &Update{
		ExecutedPrice:    &price,
		ExecutedQuantity: &qty,
		TradeID:          "TRD-1",
		ExecutedAt:       &now,
	}))

	stored, err := st.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusExecuted, stored.Status)
	require.Equal(t, 44100.0, *stored.ExecutedPrice)
	require.Equal(t, "TRD-1", stored.TradeID)

	// Terminal state: nothing may leave it.
	err = st.UpdateOrderStatus(ctx, orderID, types.StatusMatched, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = st.UpdateOrderStatus(ctx, orderID, types.StatusPending, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateOrderStatusIdempotent(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	orderID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)

	require.NoError(t, st.UpdateOrderStatus(ctx, orderID, types.StatusMatched, nil))
	// Re-applying the same transition is a no-op, not an error.
	require.NoError(t, st.UpdateOrderStatus(ctx, orderID, types.StatusMatched, nil))

	stats, err := st.QueueStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, stats.Pending)
	require.EqualValues(t, 1, stats.Matched)
}

func TestUpdateOrderStatusUnknownOrder(t *testing.T) {
	st := newTestGormStore(t, 0)
	err := st.UpdateOrderStatus(context.Background(), "ORD_missing", types.StatusMatched, nil)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestQueueExclusivity(t *testing.T) {
	// An order's id lives in exactly one queue at every step of its life.
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	orderID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)

	assertCounts := func(pending, matched, executed, failed int64) {
		t.Helper()
		stats, err := st.QueueStats(ctx)
		require.NoError(t, err)
		require.EqualValues(t, pending, stats.Pending)
		require.EqualValues(t, matched, stats.Matched)
		require.EqualValues(t, executed, stats.Executed)
		require.EqualValues(t, failed, stats.Failed)
	}

	assertCounts(1, 0, 0, 0)

	require.NoError(t, st.UpdateOrderStatus(ctx, orderID, types.StatusMatched, nil))
	assertCounts(0, 1, 0, 0)

	require.NoError(t, st.UpdateOrderStatus(ctx, orderID, types.StatusExecuted, nil))
	assertCounts(0, 0, 1, 0)
}

func TestClaimOrderSingleWinner(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	orderID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)

	const claimers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := st.ClaimOrder(ctx, orderID)
			if err == nil && claimed {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	require.Equal(t, 1, won, "exactly one claimer wins")

	stored, err := st.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, types.StatusMatched, stored.Status)
}

func TestClaimOrderNotPending(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	orderID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)
	_, err = st.CancelOrder(ctx, orderID)
	require.NoError(t, err)

	claimed, err := st.ClaimOrder(ctx, orderID)
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestCancelOrderBoundaries(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	// pending -> cancellable
	pendingID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)
	cancelled, err := st.CancelOrder(ctx, pendingID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCancelled, cancelled.Status)

	// matched -> cancellable
	matchedID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)
	require.NoError(t, st.UpdateOrderStatus(ctx, matchedID, types.StatusMatched, nil))
	cancelled, err = st.CancelOrder(ctx, matchedID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCancelled, cancelled.Status)

	// executed -> rejected
	executedID, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)
	require.NoError(t, st.UpdateOrderStatus(ctx, executedID, types.StatusMatched, nil))
	require.NoError(t, st.UpdateOrderStatus(ctx, executedID, types.StatusExecuted, nil))
	_, err = st.CancelOrder(ctx, executedID)
	require.ErrorIs(t, err, ErrNotCancellable)

	// unknown -> not found
	_, err = st.CancelOrder(ctx, "ORD_missing")
	require.ErrorIs(t, err, ErrOrderNotFound)

	// Cancelled orders leave every queue.
	stats, err := st.QueueStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, stats.Pending)
	require.EqualValues(t, 0, stats.Matched)
	require.EqualValues(t, 1, stats.Executed)
}

func TestGetUserOrders(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
		require.NoError(t, err)
	}
	other := pendingOrder("ETHUSDT", types.SideSell)
	other.UserID = "user-2"
	_, err := st.AddOrder(ctx, other)
	require.NoError(t, err)

	orders, err := st.GetUserOrders(ctx, "user-1", 0, "")
	require.NoError(t, err)
	require.Len(t, orders, 3)

	orders, err = st.GetUserOrders(ctx, "user-1", 2, "")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	orders, err = st.GetUserOrders(ctx, "user-2", 0, types.StatusPending)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	orders, err = st.GetUserOrders(ctx, "nobody", 0, "")
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestFindMatchingOrders(t *testing.T) {
	st := newTestGormStore(t, 0)
	ctx := context.Background()

	_, err := st.AddOrder(ctx, pendingOrder("BTCUSDT", types.SideBuy))
	require.NoError(t, err)

	constrained := pendingOrder("BTCUSDT", types.SideBuy)
	constrained.StrategyMatch = "momentum"
	_, err = st.AddOrder(ctx, constrained)
	require.NoError(t, err)

	otherStrategy := pendingOrder("BTCUSDT", types.SideBuy)
	otherStrategy.StrategyMatch = "meanrev"
	_, err = st.AddOrder(ctx, otherStrategy)
	require.NoError(t, err)

	_, err = st.AddOrder(ctx, pendingOrder("ETHUSDT", types.SideBuy))
	require.NoError(t, err)

	// The unconstrained order and the momentum order match; the meanrev
	// order and the other symbol do not.
	matches, err := st.FindMatchingOrders(ctx, MatchCriteria{
		Symbol:   "BTCUSDT",
		Side:     types.SideBuy,
		Strategy: "momentum",
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestSignalsNewestFirstAndTTL(t *testing.T) {
	st := newTestGormStore(t, time.Hour)
	ctx := context.Background()

	first := &types.Signal{Symbol: "BTCUSDT", Action: types.ActionBuy, Price: 100, ReceivedAt: time.Now().Add(-time.Minute)}
	_, err := st.StoreSignal(ctx, first)
	require.NoError(t, err)

	second := &types.Signal{Symbol: "BTCUSDT", Action: types.ActionSell, Price: 200}
	_, err = st.StoreSignal(ctx, second)
	require.NoError(t, err)

	// A signal received beyond the TTL window is already expired.
	stale := &types.Signal{Symbol: "BTCUSDT", Action: types.ActionBuy, Price: 50, ReceivedAt: time.Now().Add(-2 * time.Hour)}
	_, err = st.StoreSignal(ctx, stale)
	require.NoError(t, err)

	signals, err := st.GetRecentSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	require.Equal(t, second.SignalID, signals[0].SignalID)
	require.Equal(t, first.SignalID, signals[1].SignalID)

	limited, err := st.GetRecentSignals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, second.SignalID, limited[0].SignalID)
}
