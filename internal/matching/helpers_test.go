package matching

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/gateway"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
)

// newTestStore opens a fresh in-memory sqlite store for one test.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Order{}, &types.Signal{}))

	return store.NewGormStore(db, 0)
}

// stubGateway is a deterministic gateway for engine and evaluator tests. It
// counts ExecuteTrade invocations so at-most-once tests can assert on them.
type stubGateway struct {
	price        float64
	priceErr     error
	executeCalls int64
	failTrade    bool
	tradeErr     error
}

func (g *stubGateway) GetCurrentPrice(_ context.Context, _ string) (float64, error) {
	if g.priceErr != nil {
		return 0, g.priceErr
	}
	return g.price, nil
}

func (g *stubGateway) ExecuteTrade(_ context.Context, req *gateway.TradeRequest) (*gateway.TradeResult, error) {
	atomic.AddInt64(&g.executeCalls, 1)
	if g.tradeErr != nil {
		return nil, g.tradeErr
	}
	if g.failTrade {
		return &gateway.TradeResult{Success: false, Error: "insufficient margin"}, nil
	}
	return &gateway.TradeResult{
		Success:          true,
		TradeID:          "TRD-TEST",
		ExecutedPrice:    g.price,
		ExecutedQuantity: req.Quantity,
	}, nil
}

func (g *stubGateway) calls() int64 {
	return atomic.LoadInt64(&g.executeCalls)
}

func floatPtr(v float64) *float64 { return &v }

// addPendingOrder inserts an order through the normal store path.
func addPendingOrder(t *testing.T, st store.Store, order *types.Order) *types.Order {
	t.Helper()
	if order.UserID == "" {
		order.UserID = "user-1"
	}
	_, err := st.AddOrder(context.Background(), order)
	require.NoError(t, err)
	return order
}
