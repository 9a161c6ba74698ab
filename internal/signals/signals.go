// Package signals ingests TradingView webhook alerts, persists them as
// signal records and hands them to the matching engine's reactive path.
package signals

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
	"github.com/ReinaMacCredy/trading-bot-sub000/pkg/response"
)

// Trigger is the reactive entry point of the matching engine. Keeping it an
// interface here lets tests ingest signals without a running engine.
type Trigger interface {
	TriggerSignal(ctx context.Context, signal *types.Signal) error
}

// triggerTimeout bounds the background matching pass a signal kicks off.
const triggerTimeout = 30 * time.Second

// Service stores incoming signals and notifies the matching engine.
type Service struct {
	store   store.Store
	trigger Trigger
}

// NewService creates a signal service. trigger may be nil, in which case
// signals are stored for the poll path only.
func NewService(st store.Store, trigger Trigger) *Service {
	return &Service{store: st, trigger: trigger}
}

// IngestAlert converts a webhook alert into a signal record, persists it and
// kicks off the reactive matching pass in the background. The webhook caller
// is acknowledged as soon as the signal is durable; matching latency never
// blocks the response.
func (s *Service) IngestAlert(ctx context.Context, alert *types.TradingViewAlert) (*types.Signal, error) {
	signal := &types.Signal{
		Symbol:    alert.Symbol,
		Action:    alert.Action,
		Price:     alert.Price,
		Quantity:  alert.Quantity,
		Strategy:  alert.Strategy,
		Source:    "tradingview",
		Timeframe: alert.Timeframe,
		AlertName: alert.AlertName,
		Interval:  alert.Interval,
	}
	if len(alert.Indicators) > 0 {
		data, err := json.Marshal(alert.Indicators)
		if err == nil {
			signal.Indicators = string(data)
		}
	}
	if alert.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, alert.Timestamp); err == nil {
			signal.ReceivedAt = ts
		}
	}

	if _, err := s.store.StoreSignal(ctx, signal); err != nil {
		return nil, err
	}

	if s.trigger != nil {
		go func(sig types.Signal) {
			trigCtx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
			defer cancel()
			if err := s.trigger.TriggerSignal(trigCtx, &sig); err != nil {
				log.Error().
					Str("signal_id", sig.SignalID).
					Err(err).
					Msg("reactive matching pass failed")
			}
		}(*signal)
	}

	return signal, nil
}

// GetRecentSignals exposes the stored signal window, newest first.
func (s *Service) GetRecentSignals(ctx context.Context, limit int) ([]*types.Signal, error) {
	return s.store.GetRecentSignals(ctx, limit)
}

// GinHandlers contains HTTP handlers for the webhook endpoints.
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the HTTP handlers for the webhook endpoints.
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// TradingViewWebhookHandler handles POST /webhooks/tradingview.
// Schema violations are rejected with 422; a store outage yields 500.
func (h *GinHandlers) TradingViewWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var alert types.TradingViewAlert
		if err := c.ShouldBindJSON(&alert); err != nil {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		if !alert.Action.Valid() {
			response.UnprocessableEntity(c, "action must be one of buy, sell, close")
			return
		}

		signal, err := h.service.IngestAlert(c.Request.Context(), &alert)
		if err != nil {
			log.Error().Err(err).Str("symbol", alert.Symbol).Msg("failed to store signal")
			response.InternalError(c, "Failed to store signal")
			return
		}

		c.JSON(http.StatusOK, types.WebhookResponse{
			Status:    "received",
			SignalID:  signal.SignalID,
			Message:   "Signal stored and dispatched for matching",
			Timestamp: time.Now(),
		})
	}
}

// RecentSignalsHandler handles GET /webhooks/signals/recent, an operator
// endpoint for auditing the matching lookback window.
func (h *GinHandlers) RecentSignalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		signals, err := h.service.GetRecentSignals(c.Request.Context(), 50)
		if err != nil {
			log.Error().Err(err).Msg("failed to read recent signals")
			response.InternalError(c, "Failed to read signals")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"signals": signals,
			"total":   len(signals),
		})
	}
}
