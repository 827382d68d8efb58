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

	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/app"
	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/repository"
	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/router"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/config"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/database"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
	testtool "github.com/lucrare-diploma/university-chat-sub000/pkg/test_tool"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.DirectoryService, config.EnvConfig.DirectoryServiceLogPath)
	cfg := config.LoadConfig[config.Directory](config.EnvConfig.DirectoryService, config.EnvConfig.DirectoryServiceYAMLPath)

	testtool.StartPprof()

	sqlParams := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", sqlParams)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	presenceRepo := database.NewRedisRepository[domain.Presence](redisClient)

	profileRepo := repository.NewProfileRepository(pool)
	if err := profileRepo.EnsureSchema(context.Background()); err != nil {
		logger.Log.Fatal("profiles table migration failed", zap.Error(err))
	}
	usecase := app.NewDirectoryUseCase(profileRepo, cfg.PresenceTTL, presenceRepo)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.DirectoryServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewDirectoryHandler(usecase))

	port := ":" + cfg.Port
	logger.Log.Info("Directory Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal(fmt.Sprintf("Failed to start Fiber: %v", err))
	}
}
