package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/internal/media/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/database"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
)

// Consumer drains the thumbnail queue and renders previews
type Consumer struct {
	rabbitChannel  *amqp.Channel
	minioClient    database.MinIOClientRepo
	attachmentRepo repository.AttachmentRepo
	queueName      string
}

// NewConsumer create a Consumer
func NewConsumer(rabbitChannel *amqp.Channel,
	minioClient database.MinIOClientRepo,
	attachmentRepo repository.AttachmentRepo,
	queueName string,
) *Consumer {
	return &Consumer{
		rabbitChannel:  rabbitChannel,
		minioClient:    minioClient,
		attachmentRepo: attachmentRepo,
		queueName:      queueName,
	}
}

// StartConsumer blocks on the queue until ctx is cancelled. Failed jobs
// are requeued after a delay so a transient MinIO or ffmpeg hiccup does
// not drop the thumbnail for good.
func (c *Consumer) StartConsumer(ctx context.Context) {
	msgs, err := c.rabbitChannel.Consume(
		c.queueName,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Log.Fatal("consume thumbnail queue failed", zap.Error(err))
	}

	logger.Log.Info("thumbnail consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Warn("thumbnail queue channel closed")
				return
			}

			var job domain.ThumbnailJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.Log.Errorf("unmarshal thumbnail job failed", err)
				if err := d.Nack(false, true); err != nil {
					logger.Log.Errorf("nack thumbnail job failed", err)
				}
				continue
			}

			if err := c.processThumbnailJob(ctx, job); err != nil {
				logger.Log.Errorf("process thumbnail job failed", err,
					zap.Uint("attachment_id", job.AttachmentID))
				time.Sleep(10 * time.Second)
				if err := d.Nack(false, true); err != nil {
					logger.Log.Errorf("nack thumbnail job failed", err)
				}
				continue
			}

			if err := d.Ack(false); err != nil {
				logger.Log.Errorf("ack thumbnail job failed", err)
			} else {
				logger.Log.Info("thumbnail rendered",
					zap.Uint("attachment_id", job.AttachmentID))
			}
		case <-ctx.Done():
			logger.Log.Info("thumbnail consumer stopping")
			return
		}
	}
}

// processThumbnailJob downloads the original, renders the preview,
// stores it under thumbs/ and flips the attachment to ready.
func (c *Consumer) processThumbnailJob(ctx context.Context, job domain.ThumbnailJob) error {
	if err := createDir("./tmp"); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	localInput := fmt.Sprintf("./tmp/%d_original", job.AttachmentID)
	if err := c.minioClient.DownloadFile(ctx, job.ObjectKey, localInput); err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	localThumb := fmt.Sprintf("./tmp/%d_thumb.jpg", job.AttachmentID)
	if err := MakeThumbnail(localInput, localThumb); err != nil {
		return err
	}

	thumbKey := fmt.Sprintf("thumbs/%d.jpg", job.AttachmentID)
	if err := c.minioClient.UploadFile(ctx, thumbKey, localThumb, "image/jpeg"); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	attachment, err := c.attachmentRepo.GetByID(job.AttachmentID)
	if err != nil {
		return fmt.Errorf("load attachment record: %w", err)
	}
	attachment.ThumbKey = thumbKey
	attachment.Status = string(domain.AttachmentReady)
	if err := c.attachmentRepo.Update(attachment); err != nil {
		return fmt.Errorf("update attachment record: %w", err)
	}

	if err := removeFile(localInput); err != nil {
		logger.Log.Warn("clean temp input failed", zap.Error(err))
	}
	if err := removeFile(localThumb); err != nil {
		logger.Log.Warn("clean temp thumbnail failed", zap.Error(err))
	}

	return nil
}
