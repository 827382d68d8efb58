package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/app"
	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/repository"
	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/router"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/config"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/database"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
	testtool "github.com/lucrare-diploma/university-chat-sub000/pkg/test_tool"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	testtool.StartPprof()

	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval) * time.Second,
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	groupRepo := repository.NewMongoGroupRepository(mongo.Database)
	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	unreadRepo := repository.NewRedisUnreadRepository(redisClient)
	pubSub := repository.NewRedisPubSub(redisClient)

	keys := app.NewKeyResolver(groupRepo)
	groupUC := app.NewGroupUseCase(groupRepo)
	messageUC := app.NewMessageUseCase(msgRepo, groupRepo, unreadRepo, pubSub, keys)

	var suggester *app.ReplySuggester
	if cfg.Suggestions.URL != "" {
		provider := app.NewHTTPSuggestionProvider(cfg.Suggestions.URL, cfg.Suggestions.Timeout)
		cache := app.NewSuggestionCache(cfg.Suggestions.CacheTTL, nil)
		suggester = app.NewReplySuggester(provider, cache)
	}

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewChatWebsocketHandler(groupUC, messageUC, suggester))

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal(fmt.Sprintf("Failed to start Fiber: %v", err))
	}
}
