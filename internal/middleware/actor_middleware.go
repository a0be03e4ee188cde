package middleware

import (
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/models"
)

const actorLocal = "actor"

// ActorRequired is a Fiber middleware that resolves the authenticated actor
// from the bearer token issued by the upstream auth service. Token issuance
// and user management live there; this side only verifies the signature and
// reads identity claims.
func ActorRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid token claims",
			})
		}

		actor := models.Actor{}
		if id, ok := claims["user_id"].(string); ok {
			actor.ID = id
		}
		if email, ok := claims["email"].(string); ok {
			actor.Email = email
		}
		if role, ok := claims["role"].(string); ok {
			actor.Role = role
		}
		if actor.ID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Token is missing the user identity",
			})
		}

		c.Locals(actorLocal, actor)
		return c.Next()
	}
}

// ActorFromContext returns the actor stored by ActorRequired.
func ActorFromContext(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(actorLocal).(models.Actor)
	return actor, ok
}
