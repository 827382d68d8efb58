package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/streadway/amqp"

	"github.com/lucrare-diploma/university-chat-sub000/internal/media/domain"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/repository"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/database"
	errprocess "github.com/lucrare-diploma/university-chat-sub000/pkg/err"
)

// defaultChatPageSize attachments returned per conversation listing
const defaultChatPageSize = 50

// MediaUseCase application service of attachment storage
type MediaUseCase interface {
	Upload(up domain.UploadAttachmentReq) (*domain.UploadAttachmentRes, error)
	Get(ctx context.Context, id uint) (*domain.GetAttachmentRes, error)
	ListByChat(ctx context.Context, chatID string, limit int) ([]domain.GetAttachmentRes, error)
	Delete(ctx context.Context, id uint, ownerID string) error
	RequeuePending() (int, error)
}

type mediaUseCase struct {
	MinioClient    database.MinIOClientRepo
	AttachmentRepo repository.AttachmentRepo
	RabbitChannel  database.RabbitRepo
	URLExpiry      time.Duration
}

// NewMediaUseCase create a MediaUseCase
func NewMediaUseCase(minIO database.MinIOClientRepo,
	repo repository.AttachmentRepo,
	rabbitChannel database.RabbitRepo,
	urlExpiry time.Duration,
) MediaUseCase {
	return &mediaUseCase{
		MinioClient:    minIO,
		AttachmentRepo: repo,
		RabbitChannel:  rabbitChannel,
		URLExpiry:      urlExpiry,
	}
}

// Filesystem wrappers, swappable in tests.
var (
	createDir = func(path string) error {
		return os.MkdirAll(path, 0755)
	}

	createFile = func(name string) (*os.File, error) {
		return os.Create(name)
	}

	copyFile = func(dst *os.File, src io.Reader) (written int64, err error) {
		return io.Copy(dst, src)
	}

	removeFile = func(name string) error {
		return os.Remove(name)
	}
)

// isImage thumbnailable content types
func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// Upload stages the payload on local disk, stores it on MinIO, records
// the metadata row, and queues a thumbnail job for images. Staging
// through a temp file keeps large uploads out of memory and leaves a
// retriable artifact when the object store or the broker is briefly
// down.
func (s *mediaUseCase) Upload(up domain.UploadAttachmentReq) (*domain.UploadAttachmentRes, error) {
	if up.OwnerID == "" || up.FileName == "" {
		return nil, errprocess.Set(fmt.Sprintf("fileName[%s] owner and file name are required", up.FileName))
	}

	tmpDir := "./tmp"
	if err := createDir(tmpDir); err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] create temp dir failed", up.FileName), err)
	}

	tempPath := filepath.Join(tmpDir, up.FileName)
	tempFile, err := createFile(tempPath)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] create temp file failed", up.FileName), err)
	}
	defer tempFile.Close()

	if _, err := copyFile(tempFile, up.File); err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] stage payload failed", up.FileName), err)
	}

	attachment := domain.Attachment{
		OwnerID:     up.OwnerID,
		ChatID:      up.ChatID,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		Kind:        string(up.Kind),
		Status:      string(domain.AttachmentUploaded),
		Size:        up.Size,
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.AttachmentRepo.Create(&attachment); err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] create attachment record failed", up.FileName), err)
	}

	objectName := fmt.Sprintf("original/%d/%s", attachment.ID, up.FileName)
	ctx := context.Background()
	if err := s.MinioClient.UploadFile(ctx, objectName, tempPath, up.ContentType); err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] upload to minio failed", up.FileName), err)
	}

	attachment.ObjectKey = objectName
	if isImage(up.ContentType) {
		attachment.Status = string(domain.AttachmentProcessing)
	} else {
		// Nothing to derive; the original is the deliverable.
		attachment.Status = string(domain.AttachmentReady)
	}
	if err := s.AttachmentRepo.Update(&attachment); err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] update attachment record failed", up.FileName), err)
	}

	if isImage(up.ContentType) {
		job := domain.ThumbnailJob{
			AttachmentID: attachment.ID,
			ObjectKey:    attachment.ObjectKey,
			ContentType:  attachment.ContentType,
		}
		data, err := json.Marshal(job)
		if err != nil {
			return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] marshal thumbnail job failed", up.FileName), err)
		}
		err = s.RabbitChannel.Publish(
			"",
			domain.QueueName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        data,
			},
		)
		if err != nil {
			return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] publish thumbnail job failed", up.FileName), err)
		}
	}

	if err := removeFile(tempPath); err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("fileName[%s] clean temp file failed", up.FileName), err)
	}

	return &domain.UploadAttachmentRes{
		Message:      "upload accepted",
		AttachmentID: attachment.ID,
	}, nil
}

// Get resolves one servable attachment to presigned URLs.
func (s *mediaUseCase) Get(ctx context.Context, id uint) (*domain.GetAttachmentRes, error) {
	attachment, err := s.AttachmentRepo.GetByID(id)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("attachmentID[%d] not found", id), err)
	}
	if attachment.Status != string(domain.AttachmentReady) {
		return nil, errprocess.Set(fmt.Sprintf("attachmentID[%d] not ready yet", id))
	}

	return s.toRes(ctx, attachment)
}

// ListByChat returns the newest ready attachments of a conversation.
func (s *mediaUseCase) ListByChat(ctx context.Context, chatID string, limit int) ([]domain.GetAttachmentRes, error) {
	if limit <= 0 || limit > defaultChatPageSize {
		limit = defaultChatPageSize
	}
	attachments, err := s.AttachmentRepo.FindByChat(chatID, limit)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("chatID[%s] list attachments failed", chatID), err)
	}

	out := make([]domain.GetAttachmentRes, 0, len(attachments))
	for i := range attachments {
		res, err := s.toRes(ctx, &attachments[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

// Delete removes an attachment and its stored objects, owner-gated.
func (s *mediaUseCase) Delete(ctx context.Context, id uint, ownerID string) error {
	attachment, err := s.AttachmentRepo.GetByID(id)
	if err != nil {
		return errprocess.Wrap(fmt.Sprintf("attachmentID[%d] not found", id), err)
	}
	if attachment.OwnerID != ownerID {
		return errprocess.Set(fmt.Sprintf("attachmentID[%d] owner mismatch", id))
	}

	if attachment.ObjectKey != "" {
		if err := s.MinioClient.RemoveObject(ctx, attachment.ObjectKey); err != nil {
			return errprocess.Wrap(fmt.Sprintf("attachmentID[%d] remove object failed", id), err)
		}
	}
	if attachment.ThumbKey != "" {
		if err := s.MinioClient.RemoveObject(ctx, attachment.ThumbKey); err != nil {
			return errprocess.Wrap(fmt.Sprintf("attachmentID[%d] remove thumbnail failed", id), err)
		}
	}

	if err := s.AttachmentRepo.Delete(id); err != nil {
		return errprocess.Wrap(fmt.Sprintf("attachmentID[%d] delete record failed", id), err)
	}
	return nil
}

// RequeuePending republishes thumbnail jobs of attachments stuck in the
// processing state, recovering work lost to a broker or consumer
// restart. Meant to run once on startup, before the consumer starts.
// Returns the number of requeued jobs.
func (s *mediaUseCase) RequeuePending() (int, error) {
	stuck, err := s.AttachmentRepo.FindByStatus(string(domain.AttachmentProcessing))
	if err != nil {
		return 0, errprocess.Wrap("list processing attachments failed", err)
	}

	for i := range stuck {
		job := domain.ThumbnailJob{
			AttachmentID: stuck[i].ID,
			ObjectKey:    stuck[i].ObjectKey,
			ContentType:  stuck[i].ContentType,
		}
		data, err := json.Marshal(job)
		if err != nil {
			return i, errprocess.Wrap(fmt.Sprintf("attachmentID[%d] marshal thumbnail job failed", stuck[i].ID), err)
		}
		err = s.RabbitChannel.Publish(
			"",
			domain.QueueName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        data,
			},
		)
		if err != nil {
			return i, errprocess.Wrap(fmt.Sprintf("attachmentID[%d] requeue thumbnail job failed", stuck[i].ID), err)
		}
	}
	return len(stuck), nil
}

func (s *mediaUseCase) toRes(ctx context.Context, attachment *domain.Attachment) (*domain.GetAttachmentRes, error) {
	url, err := s.MinioClient.PresignGetURL(ctx, attachment.ObjectKey, s.URLExpiry)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("attachmentID[%d] presign failed", attachment.ID), err)
	}

	var thumbURL string
	if attachment.ThumbKey != "" {
		thumbURL, err = s.MinioClient.PresignGetURL(ctx, attachment.ThumbKey, s.URLExpiry)
		if err != nil {
			return nil, errprocess.Wrap(fmt.Sprintf("attachmentID[%d] presign thumbnail failed", attachment.ID), err)
		}
	}

	return &domain.GetAttachmentRes{
		AttachmentID: attachment.ID,
		FileName:     attachment.FileName,
		ContentType:  attachment.ContentType,
		Kind:         domain.AttachmentKind(attachment.Kind),
		URL:          url,
		ThumbURL:     thumbURL,
	}, nil
}
