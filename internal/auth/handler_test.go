package auth_test

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/testutils"
	"github.com/crestcms/crest/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestRegisterHandler(t *testing.T) {
	t.Run("Success - First account becomes the super admin", func(t *testing.T) {
		app := testutils.SetupTestApp(t)

		body := map[string]interface{}{
			"name":     "Founder",
			"email":    "founder@example.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.True(t, result.Success)
		assert.Equal(t, "Registration successful", result.Message)

		data := result.Data.(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])

		var stored models.User
		assert.NoError(t, database.DB.Where("email = ?", "founder@example.com").First(&stored).Error)
		assert.Equal(t, models.RoleSuperAdmin, stored.Role)
	})

	t.Run("Error - Registration closes after bootstrap", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		testutils.CreateTopLevelUser(t, database.DB, "existing@example.com", models.RoleSuperAdmin)

		body := map[string]interface{}{
			"name":     "Late Comer",
			"email":    "late@example.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
		testutils.AssertError(t, resp, "FORBIDDEN")

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", "late@example.com").Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Error - Missing required fields", func(t *testing.T) {
		app := testutils.SetupTestApp(t)

		body := map[string]interface{}{
			"email": "incomplete@example.com",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})
}

func cookieValue(resp *httptest.ResponseRecorder, name string) (string, bool) {
	for _, raw := range resp.Header().Values("Set-Cookie") {
		cookie := raw
		for i := 0; i < len(cookie); i++ {
			if cookie[i] == ';' {
				cookie = cookie[:i]
				break
			}
		}
		prefix := name + "="
		if len(cookie) >= len(prefix) && cookie[:len(prefix)] == prefix {
			return cookie[len(prefix):], true
		}
	}
	return "", false
}

func TestLoginHandler(t *testing.T) {
	t.Run("Success - Tenant user gets their tenant pinned", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		tenant := testutils.CreateTenant(t, database.DB, "alpha", nil, nil)
		testutils.CreateTenantUser(t, database.DB, "member@example.com", tenant.ID, models.RoleTenantAdmin)

		body := map[string]interface{}{
			"email":    "member@example.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.True(t, result.Success)
		data := result.Data.(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])

		v, ok := cookieValue(resp, "payload-tenant")
		assert.True(t, ok, "login must pin the tenant cookie")
		assert.Equal(t, fmt.Sprintf("%d", tenant.ID), v)
	})

	t.Run("Success - Top-level user gets no tenant cookie", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)

		body := map[string]interface{}{
			"email":    "admin@example.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		_, ok := cookieValue(resp, "payload-tenant")
		assert.False(t, ok)
	})

	t.Run("Error - Invalid credentials", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)

		body := map[string]interface{}{
			"email":    "admin@example.com",
			"password": "wrongpassword",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})

	t.Run("Error - Missing fields", func(t *testing.T) {
		app := testutils.SetupTestApp(t)

		body := map[string]interface{}{
			"email": "admin@example.com",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})
}

func TestSelectTenantHandler(t *testing.T) {
	t.Run("Success - Select a tenant by id", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		tenant := testutils.CreateTenant(t, database.DB, "alpha", nil, nil)
		admin := testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)
		token := testutils.GetAuthToken(t, admin)

		body := map[string]interface{}{
			"tenant": map[string]interface{}{"id": tenant.ID},
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/select-tenant", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		v, ok := cookieValue(resp, "payload-tenant")
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprintf("%d", tenant.ID), v)
	})

	t.Run("Success - Top-level browsing clears the tenant", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		admin := testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)
		token := testutils.GetAuthToken(t, admin)

		body := map[string]interface{}{"top_level": true}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/select-tenant", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		v, ok := cookieValue(resp, "payload-top-level")
		assert.True(t, ok)
		assert.Equal(t, "true", v)
	})

	t.Run("Error - Tenant-scoped user cannot browse unscoped", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		tenant := testutils.CreateTenant(t, database.DB, "alpha", nil, nil)
		member := testutils.CreateTenantUser(t, database.DB, "member@example.com", tenant.ID, models.RoleTenantViewer)
		token := testutils.GetAuthToken(t, member)

		body := map[string]interface{}{"top_level": true}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/select-tenant", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Error - Malformed tenant reference", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		admin := testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)
		token := testutils.GetAuthToken(t, admin)

		body := map[string]interface{}{"tenant": "acme"}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/select-tenant", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
		testutils.AssertError(t, resp, "BAD_REQUEST")
	})
}

func TestRefreshHandler(t *testing.T) {
	t.Run("Success - Valid refresh token rotates the pair", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		admin := testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)
		refreshToken, _ := utils.GenerateRefreshToken(admin.ID)

		body := map[string]interface{}{
			"user_id":       admin.ID,
			"refresh_token": refreshToken,
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/refresh", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		data := result.Data.(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])
		assert.NotEqual(t, refreshToken, data["refresh_token"])
	})

	t.Run("Error - Invalid refresh token", func(t *testing.T) {
		app := testutils.SetupTestApp(t)
		admin := testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)

		body := map[string]interface{}{
			"user_id":       admin.ID,
			"refresh_token": "invalid_token",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/refresh", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})
}

func TestLogoutHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	admin := testutils.CreateTopLevelUser(t, database.DB, "admin@example.com", models.RoleSuperAdmin)
	token := testutils.GetAuthToken(t, admin)

	t.Run("Success - Revokes refresh tokens and clears cookies", func(t *testing.T) {
		refreshToken, _ := utils.GenerateRefreshToken(admin.ID)

		resp, err := testutils.MakeRequest(app, "POST", "/auth/logout", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
		testutils.AssertSuccess(t, resp)

		assert.False(t, utils.ValidateRefreshToken(admin.ID, refreshToken))
	})

	t.Run("Error - Logout without token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "POST", "/auth/logout", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})
}
