package middlewares

import (
	"github.com/gofiber/fiber/v2"

	t_token "github.com/lucrare-diploma/university-chat-sub000/pkg/token"
)

const (
	// QueryToken token in query name
	QueryToken = "auth"
	// CookieToken token in cookie name
	CookieToken = "auth_token"

	// TokenUserID verified uid, set on c.Locals
	TokenUserID = "UserID"
	// TokenEmail verified email, set on c.Locals
	TokenEmail = "Email"
	// TokenName display name, set on c.Locals
	TokenName = "Name"
	// TokenPicture avatar URL, set on c.Locals
	TokenPicture = "Picture"
)

// JWTMiddleware validates the auth token from the query string or cookie
// and exposes the verified identity on the request context.
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenUserID, claims.UID)
		c.Locals(TokenEmail, claims.Email)
		c.Locals(TokenName, claims.Name)
		c.Locals(TokenPicture, claims.Picture)
		return c.Next()
	}
}
