package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/internal/directory/domain"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/middlewares"
)

// DirectoryHandler fiber handlers over the directory use case
type DirectoryHandler struct {
	Usecase DirectoryUseCase
}

// NewDirectoryHandler create DirectoryHandler
func NewDirectoryHandler(usecase DirectoryUseCase) *DirectoryHandler {
	return &DirectoryHandler{Usecase: usecase}
}

func localString(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key).(string); ok {
		return v
	}
	return ""
}

// Me upserts and returns the caller's own profile.
func (h *DirectoryHandler) Me(c *fiber.Ctx) error {
	profile, err := h.Usecase.EnsureProfile(c.Context(),
		localString(c, middlewares.TokenUserID),
		localString(c, middlewares.TokenEmail),
		localString(c, middlewares.TokenName),
		localString(c, middlewares.TokenPicture),
	)
	if err != nil {
		logger.Log.Error("ensure profile", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "profile lookup failed"})
	}
	return c.JSON(profile)
}

// GetUser returns another user's profile with its live presence flag.
func (h *DirectoryHandler) GetUser(c *fiber.Ctx) error {
	uid := c.Params("uid")
	profile, err := h.Usecase.Find(c.Context(), &domain.ProfileQuery{UID: &uid})
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		logger.Log.Error("find profile", zap.String("uid", uid), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "profile lookup failed"})
	}

	online, err := h.Usecase.IsOnline(c.Context(), uid)
	if err != nil {
		logger.Log.Warn("presence lookup", zap.String("uid", uid), zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"profile": profile,
		"online":  online,
	})
}

// Search finds users by name or email fragment.
func (h *DirectoryHandler) Search(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}

	profiles, err := h.Usecase.Search(c.Context(), c.Query("q"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		logger.Log.Error("profile search", zap.String("q", c.Query("q")), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "search failed"})
	}
	return c.JSON(profiles)
}

// Heartbeat refreshes the caller's presence lease.
func (h *DirectoryHandler) Heartbeat(c *fiber.Ctx) error {
	uid := localString(c, middlewares.TokenUserID)
	if err := h.Usecase.Heartbeat(c.Context(), uid); err != nil {
		logger.Log.Error("heartbeat", zap.String("uid", uid), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "heartbeat failed"})
	}
	return c.JSON(fiber.Map{"online": true})
}

// Disconnect drops the caller's presence lease.
func (h *DirectoryHandler) Disconnect(c *fiber.Ctx) error {
	uid := localString(c, middlewares.TokenUserID)
	if err := h.Usecase.Disconnect(c.Context(), uid); err != nil {
		logger.Log.Error("disconnect", zap.String("uid", uid), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "disconnect failed"})
	}
	return c.JSON(fiber.Map{"online": false})
}
