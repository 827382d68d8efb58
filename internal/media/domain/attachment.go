package domain

import "io"

// AttachmentStatus definition attachment status
type AttachmentStatus string

const (
	// AttachmentUploaded original stored, thumbnail pending
	AttachmentUploaded AttachmentStatus = "uploaded"
	// AttachmentProcessing thumbnail job in flight
	AttachmentProcessing AttachmentStatus = "processing"
	// AttachmentReady attachment servable, thumbnail present when image
	AttachmentReady AttachmentStatus = "ready"
)

// AttachmentKind definition attachment kind
type AttachmentKind string

const (
	// KindImage inline image shared in a conversation
	KindImage AttachmentKind = "image"
	// KindFile generic document shared in a conversation
	KindFile AttachmentKind = "file"
	// KindAvatar profile or group picture
	KindAvatar AttachmentKind = "avatar"
)

// UploadAttachmentReq usecase upload attachment request
type UploadAttachmentReq struct {
	OwnerID     string
	ChatID      string
	Kind        AttachmentKind
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

// UploadAttachmentRes usecase upload attachment response
type UploadAttachmentRes struct {
	Message      string
	AttachmentID uint
}

// GetAttachmentRes usecase get attachment response
type GetAttachmentRes struct {
	AttachmentID uint
	FileName     string
	ContentType  string
	Kind         AttachmentKind
	URL          string
	ThumbURL     string
}

// Attachment metadata record of one stored object
type Attachment struct {
	ID          uint `gorm:"primaryKey"`
	OwnerID     string
	ChatID      string
	FileName    string
	ObjectKey   string // object key on MinIO
	ThumbKey    string // thumbnail object key, images only
	ContentType string
	Kind        string
	Status      string
	Size        int64
	CreatedAt   int64
}
