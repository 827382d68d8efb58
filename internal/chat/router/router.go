package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/lucrare-diploma/university-chat-sub000/internal/chat/app"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/middlewares"
)

// RegisterRoutes mounts the authenticated chat websocket.
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
