// Package orders exposes the order API: creation, status, per-user listing,
// cancellation and queue statistics.
package orders

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/store"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/types"
	"github.com/ReinaMacCredy/trading-bot-sub000/pkg/response"
)

// Service handles order management on top of the record store.
type Service struct {
	store store.Store
}

// NewService creates an order service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreateOrder persists a validated order in the pending queue.
func (s *Service) CreateOrder(c *gin.Context, order *types.Order) error {
	_, err := s.store.AddOrder(c.Request.Context(), order)
	return err
}

// GetOrder retrieves an order by id; (nil, nil) when unknown.
func (s *Service) GetOrder(c *gin.Context, orderID string) (*types.Order, error) {
	return s.store.GetOrder(c.Request.Context(), orderID)
}

// GetUserOrders lists a user's orders, optionally filtered by status.
func (s *Service) GetUserOrders(c *gin.Context, userID string, limit int, status types.OrderStatus) ([]*types.Order, error) {
	return s.store.GetUserOrders(c.Request.Context(), userID, limit, status)
}

// CancelOrder cancels an order still in pending or matched state.
func (s *Service) CancelOrder(c *gin.Context, orderID string) (*types.Order, error) {
	return s.store.CancelOrder(c.Request.Context(), orderID)
}

// QueueStats reports the per-queue order counts.
func (s *Service) QueueStats(c *gin.Context) (*store.QueueStats, error) {
	return s.store.QueueStats(c.Request.Context())
}

// GinHandlers contains HTTP handlers for the order endpoints.
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates the HTTP handlers for the order endpoints.
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// CreateOrderHandler handles POST /orders/create.
// Conditional field violations (limit without price, stop without stop_price)
// are rejected with 400 before anything reaches the store.
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order := req.Order()
		if err := order.Validate(); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.CreateOrder(c, order); err != nil {
			log.Error().Err(err).Msg("failed to create order")
			response.InternalError(c, "Failed to create order")
			return
		}

		c.JSON(http.StatusOK, types.CreateOrderResponse{
			OrderID:   order.OrderID,
			Status:    "queued",
			Message:   "Order accepted and queued for matching",
			Timestamp: time.Now(),
		})
	}
}

// GetOrderStatusHandler handles GET /orders/status/:order_id.
func (h *GinHandlers) GetOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		if orderID == "" {
			response.BadRequest(c, "Order ID is required")
			return
		}

		order, err := h.service.GetOrder(c, orderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("failed to fetch order")
			response.InternalError(c, "Failed to fetch order")
			return
		}
		if order == nil {
			response.NotFound(c, "Order not found")
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GetUserOrdersHandler handles GET /orders/user/:user_id?limit=&status=.
func (h *GinHandlers) GetUserOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		if userID == "" {
			response.BadRequest(c, "User ID is required")
			return
		}

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				response.BadRequest(c, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		status := types.OrderStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			response.BadRequest(c, "unknown status filter")
			return
		}

		orders, err := h.service.GetUserOrders(c, userID, limit, status)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to list user orders")
			response.InternalError(c, "Failed to list orders")
			return
		}

		c.JSON(http.StatusOK, types.UserOrdersResponse{
			UserID: userID,
			Orders: orders,
			Total:  len(orders),
		})
	}
}

// CancelOrderHandler handles PUT /orders/cancel/:order_id.
// Orders in a terminal state are rejected with 400, never silently accepted.
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		if orderID == "" {
			response.BadRequest(c, "Order ID is required")
			return
		}

		order, err := h.service.CancelOrder(c, orderID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrOrderNotFound):
				response.NotFound(c, "Order not found")
			case errors.Is(err, store.ErrNotCancellable):
				response.BadRequest(c, "Order cannot be cancelled")
			default:
				log.Error().Err(err).Str("order_id", orderID).Msg("failed to cancel order")
				response.InternalError(c, "Failed to cancel order")
			}
			return
		}

		c.JSON(http.StatusOK, types.CancelOrderResponse{
			OrderID:   order.OrderID,
			Status:    "cancelled",
			Message:   "Order cancelled",
			Timestamp: time.Now(),
		})
	}
}

// QueueStatsHandler handles GET /orders/queue/stats.
func (h *GinHandlers) QueueStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.service.QueueStats(c)
		if err != nil {
			log.Error().Err(err).Msg("failed to read queue stats")
			response.InternalError(c, "Failed to read queue stats")
			return
		}

		c.JSON(http.StatusOK, types.QueueStatsResponse{
			PendingOrders:  stats.Pending,
			MatchedOrders:  stats.Matched,
			ExecutedOrders: stats.Executed,
			FailedOrders:   stats.Failed,
			Timestamp:      time.Now(),
		})
	}
}
