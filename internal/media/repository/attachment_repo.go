package repository

import (
	"gorm.io/gorm"

	"github.com/lucrare-diploma/university-chat-sub000/internal/media/domain"
)

// AttachmentRepo definition attachment metadata storage
type AttachmentRepo interface {
	AutoMigrate() error
	Create(attachment *domain.Attachment) error
	GetByID(id uint) (*domain.Attachment, error)
	Update(attachment *domain.Attachment) error
	FindByChat(chatID string, limit int) ([]domain.Attachment, error)
	FindByStatus(status string) ([]domain.Attachment, error)
	Delete(id uint) error
}

type attachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo create AttachmentRepo
func NewAttachmentRepo(db *gorm.DB) AttachmentRepo {
	return &attachmentRepo{db: db}
}

func (r *attachmentRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Attachment{})
}

func (r *attachmentRepo) Create(attachment *domain.Attachment) error {
	return r.db.Create(attachment).Error
}

func (r *attachmentRepo) GetByID(id uint) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attachmentRepo) Update(attachment *domain.Attachment) error {
	return r.db.Save(attachment).Error
}

// FindByChat returns the newest servable attachments of a conversation.
func (r *attachmentRepo) FindByChat(chatID string, limit int) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := r.db.Where("chat_id = ? AND status = ?", chatID, domain.AttachmentReady).
		Order("created_at DESC").Limit(limit).Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *attachmentRepo) Delete(id uint) error {
	return r.db.Delete(&domain.Attachment{}, id).Error
}

func (r *attachmentRepo) FindByStatus(status string) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	if err := r.db.Where("status = ?", status).Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}
