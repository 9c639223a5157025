package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware extracts the customer identity from a bearer token
// issued by the external auth collaborator. Only user_id is needed by
// the booking engine.
func AuthMiddleware(c *fiber.Ctx) error {
	auth := c.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return c.Status(401).JSON(fiber.Map{"error": "Missing token"})
	}

	tokenStr := auth[7:]
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-key-change-in-production"
	}

	token, err := jwt.ParseWithClaims(tokenStr, &jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims := token.Claims.(*jwt.MapClaims)
	userID, ok := (*claims)["user_id"].(float64)
	if !ok || userID <= 0 {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
	}

	c.Locals("user_id", int(userID))
	return c.Next()
}

// AdminMiddleware guards the back-office routes with a shared key.
func AdminMiddleware(c *fiber.Ctx) error {
	adminKey := c.Get("X-Admin-Key")
	expectedKey := os.Getenv("ADMIN_SECRET_KEY")

	if expectedKey == "" {
		expectedKey = "dev-admin-secret"
	}

	if adminKey != expectedKey {
		return c.Status(403).JSON(fiber.Map{"error": "Invalid admin key"})
	}

	return c.Next()
}
