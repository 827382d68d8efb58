package domain

// QueueName thumbnail job queue
const QueueName = "media_thumbnail"

// ThumbnailJob one queued thumbnail request
type ThumbnailJob struct {
	AttachmentID uint   `json:"attachment_id"`
	ObjectKey    string `json:"object_key"`
	ContentType  string `json:"content_type"`
}
