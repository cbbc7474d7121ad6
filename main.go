package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"smartcalendar/config"
	"smartcalendar/cron"
	"smartcalendar/database"
	chatRepo "smartcalendar/database/repository/chat"
	eventRepo "smartcalendar/database/repository/event"
	"smartcalendar/handlers"
	"smartcalendar/middleware"
	"smartcalendar/routes"
	ai "smartcalendar/services/intelligence"
	"smartcalendar/services/llm"
	"smartcalendar/services/tasks"
	"smartcalendar/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync() //nolint:errcheck

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	loc := config.Location()

	// Event store and chat log.
	var (
		events      eventRepo.EventRepository
		chats       chatRepo.ChatRepository
		mongoClient *mongo.Client
	)
	switch strings.ToLower(config.AppConfig.StoreDriver) {
	case "memory":
		logger.Info("Using in-memory event store")
		events = eventRepo.NewMemoryEventRepo()
		chats = chatRepo.NewMemoryChatRepo()
	default:
		database.InitDB()
		mongoClient = database.MongoClient
		events = eventRepo.NewMongoEventRepo()
		chats = chatRepo.NewMongoChatRepo()
	}

	// Conversation contexts.
	var (
		contexts    ai.ContextStore
		redisClient *redis.Client
	)
	switch strings.ToLower(config.AppConfig.ContextStore) {
	case "memory":
		logger.Info("Using in-memory conversation contexts")
		contexts = ai.NewMemoryContextStore(config.ContextTTL())
	default:
		redisClient = utils.GetContextCacheClient()
		contexts = ai.NewRedisContextStore(redisClient, config.ContextTTL())
	}

	// Reminders.
	var (
		reminders      ai.ReminderScheduler
		asynqClient    *asynq.Client
		asynqInspector *asynq.Inspector
		reminderSrv    *asynq.Server
	)
	if config.AppConfig.RemindersEnabled {
		asynqClient = asynq.NewClient(cron.RedisQueueOpt())
		asynqInspector = asynq.NewInspector(cron.RedisQueueOpt())
		lead := time.Duration(config.AppConfig.ReminderLeadMinutes) * time.Minute
		reminders = tasks.NewReminderScheduler(asynqClient, asynqInspector, lead, logger)
		reminderSrv = cron.InitReminderWorker(rootCtx, cron.LogNotifier{Logger: logger}, events)
	}

	var model ai.LanguageModel
	if client := llm.NewFromConfig(logger); client != nil {
		model = client
	}

	interpreter := ai.NewInterpreter(ai.Options{
		Model:              model,
		Events:             events,
		Contexts:           contexts,
		Chats:              chats,
		Reminders:          reminders,
		Logger:             logger,
		Location:           loc,
		ConfirmDestructive: config.AppConfig.ConfirmDestructive,
		HistoryTurns:       config.AppConfig.HistoryTurns,
	})

	utils.StartHealthMonitor(rootCtx, redisClient, mongoClient)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewChatHandler(interpreter),
		handlers.NewEventHandler(events, ai.NewDateResolver(loc), reminders),
	)
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "3001"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("timezone", loc.String()))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if reminderSrv != nil {
		reminderSrv.Shutdown()
	}
	if asynqClient != nil {
		_ = asynqClient.Close()
	}
	if asynqInspector != nil {
		_ = asynqInspector.Close()
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(ctx)
	}

	logger.Info("Server stopped gracefully")
}
