package auth

import (
	"strconv"
	"time"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/response"
	"github.com/crestcms/crest/internal/tenancy"
	"github.com/crestcms/crest/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// RegisterHandler only serves the bootstrap case: the first account becomes
// the super-admin. After that, accounts are created by admins through the
// users API.
func RegisterHandler(c *fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Name == "" || body.Email == "" || body.Password == "" {
		return response.ValidationError(c, map[string]string{
			"name":     "name is required",
			"email":    "email is required",
			"password": "password is required",
		})
	}

	var count int64
	if err := database.DB.Model(&models.User{}).Count(&count).Error; err != nil {
		return response.InternalError(c, "Failed to check existing users")
	}
	if count > 0 {
		return response.Forbidden(c, "Registration is closed; ask an administrator for an account")
	}

	u, err := BootstrapUser(body.Name, body.Email, body.Password)
	if err != nil {
		return response.InternalError(c, "Failed to create user")
	}

	accessToken, _ := utils.GenerateJWT(u.ID, u.Role)
	refreshToken, _ := utils.GenerateRefreshToken(u.ID)

	return response.Created(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          u,
	}, "Registration successful")
}

func LoginHandler(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Password == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	u, accessToken, refreshToken, err := LoginUser(body.Email, body.Password)
	if err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	// Tenant-scoped users get their tenant pinned in the cookie so the
	// resolver lands on it without the single-assignment fallback.
	if ids := access.AssignedTenantIDs(u); len(ids) == 1 && !access.IsTopLevel(u) {
		c.Cookie(&fiber.Cookie{
			Name:     tenancy.TenantCookie,
			Value:    strconv.Itoa(int(ids[0])),
			Path:     "/",
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}

	return response.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    900,
	}, "Login successful")
}

// SelectTenantHandler lets a top-level user switch the tenant they act for,
// or clear it to browse unscoped. The cookie value is validated for
// tenant-scoped users by the resolver on every request, so this endpoint
// stays open to any authenticated user.
func SelectTenantHandler(c *fiber.Ctx) error {
	var body struct {
		Tenant   interface{} `json:"tenant"`
		TopLevel bool        `json:"top_level"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.TopLevel {
		if !access.IsTopLevel(CurrentUser(c)) {
			return response.Forbidden(c, "Only top-level users can browse unscoped")
		}
		c.Cookie(&fiber.Cookie{
			Name: tenancy.TopLevelCookie, Value: "true",
			Path: "/", HTTPOnly: true, SameSite: "Lax",
		})
		c.Cookie(&fiber.Cookie{
			Name: tenancy.TenantCookie, Value: "",
			Path: "/", Expires: time.Now().Add(-time.Hour), HTTPOnly: true,
		})
		return response.Success(c, nil, "Browsing unscoped")
	}

	id, ok := tenancy.NormalizeID(body.Tenant)
	if !ok {
		return response.BadRequest(c, "Invalid tenant reference", nil)
	}

	c.Cookie(&fiber.Cookie{
		Name: tenancy.TopLevelCookie, Value: "",
		Path: "/", Expires: time.Now().Add(-time.Hour), HTTPOnly: true,
	})
	c.Cookie(&fiber.Cookie{
		Name:     tenancy.TenantCookie,
		Value:    strconv.Itoa(int(id)),
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return response.Success(c, fiber.Map{"tenant": id}, "Tenant selected")
}

func RefreshHandler(c *fiber.Ctx) error {
	var body struct {
		UserID       uint   `json:"user_id"`
		RefreshToken string `json:"refresh_token"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.UserID == 0 || body.RefreshToken == "" {
		return response.ValidationError(c, map[string]string{
			"user_id":       "user_id is required",
			"refresh_token": "refresh_token is required",
		})
	}

	accessToken, refreshToken, err := utils.RefreshTokenPair(body.UserID, body.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	return response.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    900,
	}, "Token refreshed")
}

func LogoutHandler(c *fiber.Ctx) error {
	u := CurrentUser(c)
	if u != nil {
		database.DB.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked = false", u.ID).
			Update("revoked", true)
	}

	for _, name := range []string{tenancy.TenantCookie, tenancy.TopLevelCookie} {
		c.Cookie(&fiber.Cookie{
			Name: name, Value: "",
			Path: "/", Expires: time.Now().Add(-time.Hour), HTTPOnly: true,
		})
	}

	return response.Success(c, nil, "Logged out")
}
