package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"busflow/auth"
	"busflow/cache"
	"busflow/config"
	"busflow/handlers"
	"busflow/lookup"
	"busflow/monitoring"
	"busflow/notify"
	"busflow/security"
	"busflow/services"
	"busflow/storage"
	"busflow/utils"
)

func main() {
	cfg := config.LoadConfig()
	monitor := monitoring.NewMonitor()

	// Primary backend: Redis behind a circuit breaker.
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	primary := storage.NewRedisBackend(redisClient)

	// Fallback chain: structured SQLite store, then the in-process map.
	memory := storage.NewMemoryBackend()
	var structured storage.Backend
	sqlite, err := storage.NewSQLiteBackend(cfg.SQLitePath)
	if err != nil {
		log.Printf("SQLite fallback unavailable: %v", err)
		structured = memory
	} else {
		defer sqlite.Close()
		structured = sqlite
	}
	fallback := storage.NewFallbackStore(structured, memory)

	sessionStore := storage.NewSessionStore(primary, fallback, monitor)

	// Short-TTL search selections persist through whichever backend
	// answers the probe at startup.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	cacheBackend := storage.Resolve(probeCtx, primary, structured, memory)
	probeCancel()
	searchCache := cache.NewExpiringCache(cacheBackend, monitor, cfg.CityCacheTTL)

	// Collaborators
	authProvider := auth.NewRedisProvider(redisClient)
	lookupClient := lookup.NewHTTPClient(cfg.TicketAPIBaseURL)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifier = notify.NewPubNubNotifier(pubnub.NewPubNub(pnConfig))
	}

	// Services
	flowService := services.NewFlowService(sessionStore, authProvider, notifier, monitor)
	flowService.ConfigureDeadline(cfg.PurchaseDeadline, cfg.CountdownInterval)
	passengerService := services.NewPassengerService(primary)
	seatService := services.NewSeatService(primary)
	ticketService := services.NewTicketService(lookupClient, flowService)
	maintenance := services.NewMaintenance(sessionStore, passengerService, searchCache,
		cfg.CleanupInterval, cfg.SessionRetention, cfg.PassengerMaxAge)

	// Handlers
	flowHandler := handlers.NewFlowHandler(flowService, ticketService)
	passengerHandler := handlers.NewPassengerHandler(flowService, passengerService, seatService)
	searchHandler := handlers.NewSearchHandler(searchCache)
	adminHandler := handlers.NewAdminHandler(flowService, maintenance, redisClient)
	rateLimiter := security.NewRateLimiter(redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go maintenance.Run(ctx)

	e := echo.New()
	e.Use(handlers.AuthMiddleware(authProvider))
	e.Use(rateLimiter.AntiBotMiddleware())

	// Flow endpoints
	flowGroup := e.Group("/api/flow", rateLimiter.FlowRateLimit())
	flowGroup.POST("/start", flowHandler.StartFlow)
	flowGroup.POST("/next", flowHandler.NextStep)
	flowGroup.POST("/previous", flowHandler.PreviousStep)
	flowGroup.POST("/return-to-seats", flowHandler.ReturnToSeatSelection)
	flowGroup.GET("/step", flowHandler.GetStep)
	flowGroup.GET("/steps", flowHandler.GetSteps)
	flowGroup.GET("/progress", flowHandler.GetProgress)
	flowGroup.DELETE("/session", flowHandler.ClearSession)

	// Passenger and seat endpoints
	e.PUT("/api/passengers", passengerHandler.SubmitPassengers)
	e.GET("/api/passengers", passengerHandler.GetPassengers)
	e.PUT("/api/seats/selection", passengerHandler.SelectSeats)
	e.GET("/api/seats/selection", passengerHandler.GetSelectedSeats)

	// Search selection endpoints
	e.PUT("/api/search/selection", searchHandler.SaveSelection)
	e.GET("/api/search/selection", searchHandler.GetSelection)
	e.DELETE("/api/search/selection", searchHandler.ClearSelection)

	// Admin endpoints
	e.GET("/api/admin/session-dashboard", adminHandler.GetSessionDashboard)
	e.POST("/api/admin/force-cleanup", adminHandler.ForceCleanup)
	e.POST("/api/admin/terminate-session", adminHandler.TerminateSession)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusOK, map[string]string{
				"status": "degraded",
				"detail": "primary store unavailable, fallback serving",
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	if cfg.EnableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	go handleShutdown(cancel, server)

	log.Printf("Flow session service listening on :%s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	flowService.Close()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()

	ctx, timeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeout()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
