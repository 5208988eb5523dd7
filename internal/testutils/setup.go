package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/server"
	"github.com/crestcms/crest/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err, "Failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.TenantMembership{},
		&models.Tenant{},
		&models.Page{},
		&models.Post{},
		&models.Category{},
		&models.Header{},
		&models.Footer{},
		&models.Section{},
		&models.MediaFile{},
		&models.RefreshToken{},
	)
	assert.NoError(t, err, "Failed to migrate test database")

	return db
}

func SetupTestApp(t *testing.T) *fiber.App {
	db := TestDB(t)
	database.DB = db

	err := utils.InitLocalStorage()
	assert.NoError(t, err, "Failed to initialize storage")
	utils.SetStorageMode(true)

	app := server.New(db)
	return app
}

// CreateTenant inserts a tenant with the given collection lists. Pass nil
// for an unconfigured (fail-open) list, an empty slice for deny-all.
func CreateTenant(t *testing.T, db *gorm.DB, slug string, allowed, publicRead []string) *models.Tenant {
	tenant := &models.Tenant{
		Name: "Tenant " + slug,
		Slug: slug,
	}
	if allowed != nil {
		raw, _ := json.Marshal(allowed)
		tenant.AllowedCollections = datatypes.JSON(raw)
	}
	if publicRead != nil {
		raw, _ := json.Marshal(publicRead)
		tenant.AllowPublicRead = datatypes.JSON(raw)
	}

	err := db.Create(tenant).Error
	assert.NoError(t, err, "Failed to create test tenant")
	return tenant
}

func CreateTopLevelUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	hashedPassword, _ := utils.HashPassword("password123")

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: hashedPassword,
		Status:   "active",
		Role:     role,
	}
	err := db.Create(user).Error
	assert.NoError(t, err, "Failed to create test user")

	db.Preload("Tenants").First(user, user.ID)
	return user
}

func CreateTenantUser(t *testing.T, db *gorm.DB, email string, tenantID uint, roles ...string) *models.User {
	hashedPassword, _ := utils.HashPassword("password123")

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: hashedPassword,
		Status:   "active",
	}
	err := db.Create(user).Error
	assert.NoError(t, err, "Failed to create test user")

	raw, _ := json.Marshal(roles)
	membership := models.TenantMembership{
		UserID:   user.ID,
		TenantID: tenantID,
		Roles:    datatypes.JSON(raw),
	}
	err = db.Create(&membership).Error
	assert.NoError(t, err, "Failed to create test membership")

	db.Preload("Tenants").First(user, user.ID)
	return user
}

func CreatePost(t *testing.T, db *gorm.DB, tenantID, authorID uint, status string) *models.Post {
	post := &models.Post{
		Title:  "Test Post",
		Slug:   fmt.Sprintf("test-post-%d", authorID),
		Status: status,
	}
	post.TenantID = tenantID
	post.CreatedBy = authorID

	err := db.Create(post).Error
	assert.NoError(t, err, "Failed to create test post")
	return post
}

func GetAuthToken(t *testing.T, user *models.User) string {
	token, err := utils.GenerateJWT(user.ID, user.Role)
	assert.NoError(t, err, "Failed to generate test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	return MakeRequestWithCookie(app, method, url, body, token, "")
}

// MakeRequestWithCookie sends a request with an optional raw Cookie header,
// which is how tenant selection travels.
func MakeRequestWithCookie(app *fiber.App, method, url string, body interface{}, token, cookie string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    *Meta        `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func MakeMultipartRequestWithFile(app *fiber.App, method, url string, fields map[string]string, files map[string][]byte, token, cookie string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		writer.WriteField(key, val)
	}

	for fieldName, fileContent := range files {
		part, err := writer.CreateFormFile(fieldName, fieldName+".jpg")
		if err != nil {
			return nil, err
		}
		part.Write(fileContent)
	}

	contentType := writer.FormDataContentType()
	writer.Close()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.NotNil(t, result.Error, "Expected error object")
	if result.Error != nil {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}
