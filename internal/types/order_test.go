package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderValidate(t *testing.T) {
	price := 44000.0
	stop := 43000.0

	valid := func() *Order {
		return &Order{
			Symbol:    "BTCUSDT",
			Side:      SideBuy,
			OrderType: OrderTypeMarket,
			Quantity:  0.1,
		}
	}

	t.Run("market order needs no prices", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("limit order requires price", func(t *testing.T) {
		o := valid()
		o.OrderType = OrderTypeLimit
		require.ErrorIs(t, o.Validate(), ErrMissingPrice)
		o.Price = &price
		require.NoError(t, o.Validate())
	})

	t.Run("stop order requires stop price", func(t *testing.T) {
		o := valid()
		o.OrderType = OrderTypeStop
		require.ErrorIs(t, o.Validate(), ErrMissingStopPrice)
		o.StopPrice = &stop
		require.NoError(t, o.Validate())
	})

	t.Run("stop limit requires both", func(t *testing.T) {
		o := valid()
		o.OrderType = OrderTypeStopLimit
		require.ErrorIs(t, o.Validate(), ErrMissingPrice)
		o.Price = &price
		require.ErrorIs(t, o.Validate(), ErrMissingStopPrice)
		o.StopPrice = &stop
		require.NoError(t, o.Validate())
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		o := valid()
		o.Quantity = 0
		require.Error(t, o.Validate())
	})

	t.Run("unknown side and type rejected", func(t *testing.T) {
		o := valid()
		o.Side = "hold"
		require.Error(t, o.Validate())

		o = valid()
		o.OrderType = "trailing"
		require.Error(t, o.Validate())
	})
}

func TestStatusTransitionTable(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		StatusPending: {StatusMatched, StatusFailed, StatusCancelled},
		StatusMatched: {StatusExecuted, StatusFailed, StatusCancelled},
	}
	all := []OrderStatus{StatusPending, StatusMatched, StatusExecuted, StatusFailed, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusMatched.Terminal())
	assert.True(t, StatusExecuted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

func TestSignalGated(t *testing.T) {
	assert.False(t, (&Order{}).SignalGated())
	assert.True(t, (&Order{TriggerCondition: "signal"}).SignalGated())
	assert.True(t, (&Order{StrategyMatch: "momentum"}).SignalGated())
	assert.True(t, (&Order{SignalSource: "tradingview"}).SignalGated())
}
