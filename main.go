package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"meetup-chat-service/internal/auth"
	"meetup-chat-service/internal/config"
	"meetup-chat-service/internal/db"
	"meetup-chat-service/internal/handlers"
	"meetup-chat-service/internal/logger"
	"meetup-chat-service/internal/middleware"
	"meetup-chat-service/internal/observability"
	"meetup-chat-service/internal/rabbitmq"
	"meetup-chat-service/internal/repositories"
	"meetup-chat-service/internal/service"
	"meetup-chat-service/internal/telemetry"
	"meetup-chat-service/internal/tracing"
	"meetup-chat-service/internal/ws"
)

const serviceName = "meetup-chat-service"

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.Debug); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Log.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer shutdownTracing(ctx)

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Log.Fatal("failed to connect to db", zap.Error(err))
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	logger.Log.Info("event publisher ready", zap.String("mode", rabbitmq.PublisherMode(publisher)))

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Environment)

	if amqpPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err == nil {
		observability.SetPublisher(amqpPublisher)
		defer amqpPublisher.Close()
	}

	threadRepo := repositories.NewThreadRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	statusRepo := repositories.NewStatusRepo(database)

	chatService := service.NewService(threadRepo, messageRepo, statusRepo)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	hub := ws.NewHub()

	chatHandler := handlers.NewChatHandler(chatService, hub)
	threadHandler := handlers.NewThreadHandler(chatService, auditEmitter)
	threadWS := ws.NewThreadWebSocketHandler(hub, threadRepo, verifier)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/threads/:thread_id/messages", authMiddleware, chatHandler.GetThreadMessages)
	router.POST("/threads/:thread_id/messages", authMiddleware, chatHandler.PostThreadMessage)
	router.POST("/messages/:message_id/delivered", authMiddleware, chatHandler.AckDelivered)
	router.POST("/messages/:message_id/read", authMiddleware, chatHandler.AckRead)

	router.POST("/threads", authMiddleware, threadHandler.CreateThread)
	router.POST("/threads/:thread_id/participants", authMiddleware, threadHandler.AddParticipant)
	router.GET("/meetups/:meetup_id/thread", authMiddleware, threadHandler.GetThreadForMeetup)
	router.DELETE("/meetups/:meetup_id/thread", authMiddleware, threadHandler.DeleteThreadForMeetup)

	router.GET("/ws/threads/:thread_id", threadWS.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, chatService, cfg.Debug)

	logger.Log.Info("listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatal("server error", zap.Error(err))
	}
}
