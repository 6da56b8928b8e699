package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"chatwave/config"
	"chatwave/models"
	"chatwave/utils"
)

// Protected rejects requests without a valid access token. Used by all
// mutation routes, which must fail loudly when unauthenticated.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveCaller(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

// OptionalAuth resolves the caller when a token is present but lets
// anonymous requests through. Query routes use it: without an identity
// they degrade to empty results instead of erroring.
func OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := resolveCaller(c)
		if user != nil {
			c.Locals("user", user)
			c.Locals("userID", user.ID)
		}
		return c.Next()
	}
}

// resolveCaller extracts and validates the bearer token, returning
// (nil, nil) when no token was supplied at all.
func resolveCaller(c *fiber.Ctx) (*models.User, error) {
	var token string
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization format")
		}
		token = tokenParts[1]
	} else {
		// Fall back to cookie if header not present
		token = c.Cookies("access_token")
		if token == "" {
			return nil, nil
		}
	}

	claims, err := utils.ParseJWTToken(token)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}

	var user models.User
	if err := config.DB.First(&user, claims.UserID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "user not found")
	}

	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "account is not active")
	}

	// Tokens from before a logout-all carry a stale version
	if claims.TokenVersion != user.TokenVersion {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid token version")
	}

	return &user, nil
}
