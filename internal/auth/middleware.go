package auth

import (
	"strings"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/response"
	"github.com/crestcms/crest/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Identity loads the authenticated user when a valid bearer token is
// present and continues anonymously otherwise. Public reads depend on the
// anonymous path staying open; RequireAuth closes it where needed.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid token format")
		}

		userID, err := utils.ParseJWT(tokenParts[1])
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		var u models.User
		if err := database.DB.Preload("Tenants").
			Where("id = ? AND deleted_at IS NULL", userID).
			First(&u).Error; err != nil {
			return response.Unauthorized(c, "User not found")
		}

		c.Locals("user", &u)
		return c.Next()
	}
}

func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return response.Unauthorized(c, "Missing authorization token")
		}
		return c.Next()
	}
}

// WithAccess builds the request's access context. When the request arrives
// on a domain owned by a tenant, that tenant is preset on the context and
// wins over any cookie (domain routing is trusted upstream input).
func WithAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := access.NewContext(database.DB, CurrentUser(c), c.Get(fiber.HeaderCookie), c.Hostname())

		if host := c.Hostname(); host != "" {
			var t models.Tenant
			err := database.DB.Select("id").
				Where("domain = ? AND deleted_at IS NULL", host).
				First(&t).Error
			if err == nil {
				rc.PresetTenant = t.ID
			}
		}

		c.Locals("access", rc)
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals("user").(*models.User)
	return u
}

func AccessContext(c *fiber.Ctx) *access.Context {
	if rc, ok := c.Locals("access").(*access.Context); ok {
		return rc
	}
	return access.NewContext(database.DB, CurrentUser(c), c.Get(fiber.HeaderCookie), c.Hostname())
}
