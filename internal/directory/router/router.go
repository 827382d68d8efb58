package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/app"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/middlewares"
)

// RegisterRoutes mounts the authenticated directory endpoints.
func RegisterRoutes(r *fiber.App, handler *app.DirectoryHandler) {
	users := r.Group("/directory")
	users.Use(middlewares.JWTMiddleware())

	users.Get("/me", handler.Me)
	users.Get("/users/:uid", handler.GetUser)
	users.Get("/search", handler.Search)
	users.Post("/heartbeat", handler.Heartbeat)
	users.Post("/disconnect", handler.Disconnect)
}
