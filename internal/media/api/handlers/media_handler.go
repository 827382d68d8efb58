package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/internal/media/app"
	"github.com/lucrare-diploma/university-chat-sub000/internal/media/domain"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/middlewares"
)

// MediaHandler definition attachment handler
type MediaHandler struct {
	Usecase app.MediaUseCase
}

// UploadAttachment receives a multipart upload and hands it to the use case.
func (h *MediaHandler) UploadAttachment(c *fiber.Ctx) error {
	ownerID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.FormValue("chat_id")
	kind := c.FormValue("kind")
	if kind == "" {
		kind = string(domain.KindFile)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file field is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "cannot read uploaded file"})
	}
	defer file.Close()

	res, err := h.Usecase.Upload(domain.UploadAttachmentReq{
		OwnerID:     ownerID,
		ChatID:      chatID,
		Kind:        domain.AttachmentKind(kind),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		File:        file,
	})
	if err != nil {
		logger.Log.Errorf("upload attachment failed", err,
			zap.String("owner_id", ownerID),
			zap.String("file_name", fileHeader.Filename))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
	}

	return c.JSON(fiber.Map{
		"msg":           res.Message,
		"attachment_id": res.AttachmentID,
	})
}

// GetAttachment resolve attachment id to presigned URLs
func (h *MediaHandler) GetAttachment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid attachment id"})
	}

	res, err := h.Usecase.Get(c.Context(), uint(id))
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "attachment not available"})
	}
	return c.JSON(res)
}

// DeleteAttachment remove an attachment owned by the caller
func (h *MediaHandler) DeleteAttachment(c *fiber.Ctx) error {
	ownerID, _ := c.Locals(middlewares.TokenUserID).(string)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid attachment id"})
	}

	if err := h.Usecase.Delete(c.Context(), uint(id), ownerID); err != nil {
		logger.Log.Errorf("delete attachment failed", err,
			zap.String("owner_id", ownerID),
			zap.Int("attachment_id", id))
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "attachment not available"})
	}
	return c.JSON(fiber.Map{"msg": "attachment deleted"})
}

// ListChatAttachments list the ready attachments of one conversation
func (h *MediaHandler) ListChatAttachments(c *fiber.Ctx) error {
	chatID := c.Params("chatID")
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := h.Usecase.ListByChat(c.Context(), chatID, limit)
	if err != nil {
		logger.Log.Errorf("list attachments failed", err, zap.String("chat_id", chatID))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "listing failed"})
	}
	return c.JSON(fiber.Map{"attachments": res})
}
