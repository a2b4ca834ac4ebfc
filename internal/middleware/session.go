package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nuansasolution/portal/internal/domain"
)

// Context keys for storing session info
const (
	SessionKey = "session"
	UserIDKey  = "userID"
)

// VerifyPortalToken validates the JWT and stores the session in context.
// The portal never issues tokens itself; it validates tokens minted by the
// backend at login and forwards them on every backend call.
func VerifyPortalToken(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization token",
			})
		}

		// Extract token (format: "Bearer <token>")
		tokenString := authHeader
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenString = authHeader[7:]
		}
		// header values are zero-copy views into fasthttp's request
		// buffer; the session token outlives this request, so detach it
		tokenString = utils.CopyString(tokenString)

		token, err := jwt.ParseWithClaims(tokenString, &domain.PortalClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "AUTH_EXPIRED",
			})
		}

		claims, ok := token.Claims.(*domain.PortalClaims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
				"code":  "AUTH_EXPIRED",
			})
		}

		c.Locals(SessionKey, &domain.Session{
			UserID: claims.UserID,
			Email:  claims.Email,
			Phone:  claims.Phone,
			Token:  tokenString,
		})
		c.Locals(UserIDKey, claims.UserID)

		return c.Next()
	}
}

// OptionalPortalToken stores the session when a valid bearer token is
// present and lets the request through anonymously otherwise. Used on the
// quote endpoint, which anonymous visitors hit before logging in.
func OptionalPortalToken(jwtSecret string) fiber.Handler {
	required := VerifyPortalToken(jwtSecret)
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Next()
		}
		return required(c)
	}
}

// SessionFrom extracts the authenticated session stored by VerifyPortalToken.
func SessionFrom(c *fiber.Ctx) (*domain.Session, bool) {
	sess, ok := c.Locals(SessionKey).(*domain.Session)
	return sess, ok
}
