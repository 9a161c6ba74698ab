package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// venue models a simulated execution venue.
type venue struct {
	ID              string
	Name            string
	MinLatency      int // in milliseconds
	MaxLatency      int
	LiquidityFactor float64 // 0-1, represents available liquidity
	SuccessRate     float64 // 0-1, probability of successful execution
}

var mockVenues = []*venue{
	{
		ID:              "VENUE1",
		Name:            "Primary Venue",
		MinLatency:      5,
		MaxLatency:      30,
		LiquidityFactor: 0.9,
		SuccessRate:     0.95,
	},
	{
		ID:              "VENUE2",
		Name:            "Secondary Venue",
		MinLatency:      10,
		MaxLatency:      50,
		LiquidityFactor: 0.7,
		SuccessRate:     0.90,
	},
	{
		ID:              "VENUE3",
		Name:            "Regional Venue",
		MinLatency:      15,
		MaxLatency:      70,
		LiquidityFactor: 0.5,
		SuccessRate:     0.85,
	},
}

// MockGateway simulates an exchange: a drifting price book per symbol and a
// set of venues with latency, liquidity and success-rate characteristics.
type MockGateway struct {
	mu     sync.Mutex
	prices map[string]float64
}

// NewMockGateway seeds the simulated price book.
func NewMockGateway(seedPrices map[string]float64) *MockGateway {
	prices := map[string]float64{
		"BTCUSDT": 44000,
		"ETHUSDT": 2400,
		"EURUSD":  1.09,
	}
	for symbol, price := range seedPrices {
		prices[symbol] = price
	}
	return &MockGateway{prices: prices}
}

// GetCurrentPrice returns the current simulated price, applying a small
// random walk on each read.
func (g *MockGateway) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	price, ok := g.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}

	// Drift up to ±0.2% per read
	price *= 1 + (rand.Float64()*0.004 - 0.002)
	g.prices[symbol] = price
	return price, nil
}

// SetPrice pins a symbol's price, used by the simulation driver.
func (g *MockGateway) SetPrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[symbol] = price
}

// selectVenue picks a venue weighted by liquidity and success rate.
func selectVenue() *venue {
	totalWeight := 0.0
	for _, v := range mockVenues {
		totalWeight += v.LiquidityFactor * v.SuccessRate
	}

	choice := rand.Float64() * totalWeight
	currentWeight := 0.0
	for _, v := range mockVenues {
		currentWeight += v.LiquidityFactor * v.SuccessRate
		if currentWeight >= choice {
			return v
		}
	}
	return mockVenues[0]
}

// ExecuteTrade simulates order execution across up to three venues,
// aggregating partial fills into a single result.
func (g *MockGateway) ExecuteTrade(ctx context.Context, req *TradeRequest) (*TradeResult, error) {
	logger := log.With().
		Str("component", "mock_gateway").
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("quantity", req.Quantity).
		Logger()

	refPrice, err := g.GetCurrentPrice(ctx, req.Symbol)
	if err != nil {
		return &TradeResult{Success: false, Error: err.Error()}, nil
	}
	if req.Price != nil {
		refPrice = *req.Price
	}

	remainingQty := req.Quantity
	totalExecutedQty := 0.0
	weightedPrice := 0.0

	for i := 0; i < 3 && remainingQty > 0; i++ {
		v := selectVenue()

		// Simulate network latency, respecting cancellation.
		latency := rand.Intn(v.MaxLatency-v.MinLatency+1) + v.MinLatency
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(latency) * time.Millisecond):
		}

		if rand.Float64() > v.SuccessRate {
			logger.Warn().Str("venue_id", v.ID).Msg("venue rejected fill attempt")
			continue
		}

		// Executed price varies up to ±0.5% around the reference.
		fillPrice := refPrice * (1 + (rand.Float64()*0.01 - 0.005))
		fillQty := remainingQty
		if rand.Float64() > v.LiquidityFactor {
			fillQty = remainingQty * v.LiquidityFactor
		}
		if fillQty <= 0 {
			continue
		}

		totalExecutedQty += fillQty
		weightedPrice += fillPrice * fillQty
		remainingQty -= fillQty

		logger.Debug().
			Str("venue_id", v.ID).
			Float64("fill_price", fillPrice).
			Float64("fill_quantity", fillQty).
			Msg("venue fill")
	}

	if totalExecutedQty == 0 {
		logger.Error().Msg("failed to execute trade on any venue")
		return &TradeResult{
			Success: false,
			Error:   "no venue accepted the trade",
		}, nil
	}

	result := &TradeResult{
		Success:          true,
		TradeID:          fmt.Sprintf("TRD-%d", rand.Int63()),
		ExecutedPrice:    weightedPrice / totalExecutedQty,
		ExecutedQuantity: totalExecutedQty,
	}

	logger.Info().
		Str("trade_id", result.TradeID).
		Float64("executed_price", result.ExecutedPrice).
		Float64("executed_quantity", result.ExecutedQuantity).
		Msg("trade executed")

	return result, nil
}
