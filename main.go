package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"carmart-service/internal/auth"
	"carmart-service/internal/bidcache"
	"carmart-service/internal/config"
	"carmart-service/internal/db"
	"carmart-service/internal/handlers"
	"carmart-service/internal/middleware"
	"carmart-service/internal/observability"
	"carmart-service/internal/rabbitmq"
	"carmart-service/internal/repositories"
	"carmart-service/internal/telemetry"
	"carmart-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.OTLPEndpoint, "carmart-service", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.carmart", "carmart-service", cfg.Environment)

	if eventPublisher, err := observability.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange); err == nil {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	} else {
		log.Printf("event publisher disabled: %v", err)
	}

	var cache handlers.HighestBidCache
	if bc, err := bidcache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err == nil {
		cache = bc
		defer bc.Close()
	} else {
		log.Printf("bid cache disabled: %v", err)
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	threadRepo := repositories.NewThreadRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	bidRepo := repositories.NewBidRepo(database)
	catalogRepo := repositories.NewCatalogRepo(database)

	hub := ws.NewHub()

	threadHandler := handlers.NewThreadHandler(threadRepo, messageRepo, catalogRepo, hub)
	bidHandler := handlers.NewBidHandler(bidRepo, catalogRepo, cache, auditEmitter)
	threadWS := ws.NewThreadWebSocketHandler(hub, threadRepo, verifier)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("carmart-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/listings/:listing_id/messages", authMiddleware, threadHandler.SendMessage)
	router.GET("/threads", authMiddleware, threadHandler.ListThreads)
	router.GET("/threads/:thread_id", authMiddleware, threadHandler.GetThread)
	router.POST("/threads/:thread_id/messages/:message_id/read", authMiddleware, threadHandler.MarkRead)

	router.POST("/listings/:listing_id/bids", authMiddleware, bidHandler.PlaceBid)
	router.GET("/listings/:listing_id/bids", authMiddleware, bidHandler.ListBids)
	router.GET("/listings/:listing_id/bids/highest", authMiddleware, bidHandler.HighestBid)

	router.GET("/ws/threads/:thread_id", threadWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
