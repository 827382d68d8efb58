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

	"github.com/lucrare-diploma/university-chat-sub000/internal/media/api/handlers"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/api/router"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/app"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/config"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/database"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
	testtool "github.com/lucrare-diploma/university-chat-sub000/pkg/test_tool"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.MediaService, config.EnvConfig.MediaServiceLogPath)
	cfg := config.LoadConfig[config.Media](config.EnvConfig.MediaService, config.EnvConfig.MediaServiceYAMLPath)

	testtool.StartPprof()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", dsn)),
			zap.Error(err),
		)
	}

	attachmentRepo := repository.NewAttachmentRepo(db)
	if err := attachmentRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("attachment table migration failed", zap.Error(err))
	}

	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries", zap.Error(err))
	}

	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to rabbitmq after retries", zap.Error(err))
	}
	defer conn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, cfg.RabbitMQ.RetryInterval)
	if err != nil {
		logger.Log.Fatal("Unable to open rabbitmq channel after retries", zap.Error(err))
	}
	defer rabbitChannel.Close()

	rabbitRepo := database.NewRabbitRepository(rabbitChannel)

	if _, err := rabbitRepo.GetRabbit().QueueDeclare(
		domain.QueueName,
		true, // durable
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Log.Fatal("queue declare failed", zap.Error(err))
	}

	usecase := app.NewMediaUseCase(minioClient, attachmentRepo, rabbitRepo, cfg.URLExpiry)

	// Jobs queued before a broker or consumer crash leave attachments
	// stuck in processing; push them back on the queue before consuming.
	if requeued, err := usecase.RequeuePending(); err != nil {
		logger.Log.Error("thumbnail requeue failed", zap.Error(err))
	} else if requeued > 0 {
		logger.Log.Info("requeued stuck thumbnail jobs", zap.Int("count", requeued))
	}

	consumer := app.NewConsumer(rabbitRepo.GetRabbit(), minioClient, attachmentRepo, domain.QueueName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.StartConsumer(ctx)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MediaServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, &handlers.MediaHandler{Usecase: usecase})

	port := ":" + cfg.Port
	logger.Log.Info("Media Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal(fmt.Sprintf("Failed to start Fiber: %v", err))
	}
}
