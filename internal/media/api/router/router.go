package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lucrare-diploma/university-chat-sub000/internal/media/api/handlers"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/middlewares"
)

// RegisterRoutes mounts the authenticated media endpoints.
func RegisterRoutes(r *fiber.App, mediaHandler *handlers.MediaHandler) {
	media := r.Group("/media")
	media.Use(middlewares.JWTMiddleware())

	media.Post("/", mediaHandler.UploadAttachment)
	media.Get("/chat/:chatID", mediaHandler.ListChatAttachments)
	media.Get("/:id", mediaHandler.GetAttachment)
	media.Delete("/:id", mediaHandler.DeleteAttachment)
}
