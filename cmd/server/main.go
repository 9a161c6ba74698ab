package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ReinaMacCredy/trading-bot-sub000/internal/auth"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/config"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/database"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/gateway"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/matching"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/orders"
	"github.com/ReinaMacCredy/trading-bot-sub000/internal/signals"
	"github.com/ReinaMacCredy/trading-bot-sub000/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the order matching service with graceful
// shutdown: the matching engine is stopped before the HTTP server drains.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize the record store on the configured backend
	recordStore, err := database.NewStore(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize record store")
	}
	defer recordStore.Close()

	// The bundled gateway simulates exchange connectivity; swap in a real
	// implementation behind the same interface for live trading.
	tradingGateway := gateway.NewMockGateway(nil)

	// Matching engine: poll loop plus the signal-reactive path
	engine := matching.NewEngine(recordStore, tradingGateway, matching.Config{
		PollInterval:   cfg.PollInterval(),
		PollBatchSize:  cfg.PollBatchSize,
		SignalLookback: cfg.SignalLookback,
		TriggerPolicy:  matching.TriggerPolicy(cfg.TriggerPolicy),
		GatewayTimeout: cfg.GatewayTimeout(),
	})

	engineCtx, engineCancel := context.WithCancel(context.Background())
	go engine.Start(engineCtx)

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials("test-api-key", "test-api-secret")

	orderService := orders.NewService(recordStore)
	orderHandlers := orders.NewGinHandlers(orderService)

	signalService := signals.NewService(recordStore, engine)
	signalHandlers := signals.NewGinHandlers(signalService)

	// Initialize router
	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit())

	setupRoutes(router, cfg, authHandlers, orderHandlers, signalHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Stop the matching engine first so no execution starts mid-drain
	engineCancel()

	// Give outstanding requests 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers:
// - Auth routes: public endpoint exchanging API credentials for a JWT
// - Webhook routes: public (TradingView cannot authenticate), rate limited
// - Order routes: protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	orderHandlers *orders.GinHandlers,
	signalHandlers *signals.GinHandlers,
) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/token", authHandlers.GenerateTokenHandler())
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/tradingview", signalHandlers.TradingViewWebhookHandler())
		webhooks.GET("/signals/recent", signalHandlers.RecentSignalsHandler())
	}

	orderGroup := router.Group("/orders")
	orderGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		orderGroup.POST("/create", orderHandlers.CreateOrderHandler())
		orderGroup.GET("/status/:order_id", orderHandlers.GetOrderStatusHandler())
		orderGroup.GET("/user/:user_id", orderHandlers.GetUserOrdersHandler())
		orderGroup.PUT("/cancel/:order_id", orderHandlers.CancelOrderHandler())
		orderGroup.GET("/queue/stats", orderHandlers.QueueStatsHandler())
	}
}
