package media

import (
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"strings"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/auth"
	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/response"
	"github.com/crestcms/crest/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.UGCPolicy()

func sanitizeInput(input string) string {
	return policy.Sanitize(input)
}

// UploadMediaHandler stores a file under the resolved tenant's prefix and
// records it as a media document, subject to the same create predicate as
// the rest of the collection.
func UploadMediaHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)
	u := auth.CurrentUser(c)

	if !rc.CanCreate(access.CollectionMedia) {
		return response.Forbidden(c, "You cannot upload media for this tenant")
	}

	tenantID, ok := rc.ResolveTenant()
	if !ok {
		return response.BadRequest(c, "No tenant selected", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required", nil)
	}

	maxSize := int64(10 * 1024 * 1024) // 10MB
	if strings.HasPrefix(file.Header.Get("Content-Type"), "video/") {
		maxSize = int64(100 * 1024 * 1024) // 100MB for videos
	}

	if file.Size > maxSize {
		return response.BadRequest(c, "File too large", map[string]interface{}{
			"max_size_mb":  maxSize / (1024 * 1024),
			"file_size_mb": file.Size / (1024 * 1024),
		})
	}

	alt := sanitizeInput(c.FormValue("alt", ""))
	caption := sanitizeInput(c.FormValue("caption", ""))
	tagsStr := c.FormValue("tags", "[]")

	var tags []string
	json.Unmarshal([]byte(tagsStr), &tags)

	url, err := utils.UploadFile(file, tenantID)
	if err != nil {
		return response.InternalError(c, "Failed to upload file: "+err.Error())
	}

	mediaFile := models.MediaFile{
		FileName: file.Filename,
		URL:      url,
		Type:     file.Header.Get("Content-Type"),
		Size:     file.Size,
		Alt:      alt,
		Caption:  caption,
	}
	mediaFile.TenantID = tenantID
	mediaFile.CreatedBy = u.ID

	if strings.HasPrefix(mediaFile.Type, "image/") {
		if width, height, err := getImageDimensions(file); err == nil {
			mediaFile.Width = &width
			mediaFile.Height = &height
		}
	}

	if len(tags) > 0 {
		tagsJSON, _ := json.Marshal(tags)
		mediaFile.Tags = tagsJSON
	}

	if err := database.DB.Create(&mediaFile).Error; err != nil {
		utils.DeleteFile(url, tenantID)
		return response.InternalError(c, "Failed to save media metadata")
	}

	return response.Created(c, mediaFile, "Media uploaded successfully")
}

func getImageDimensions(file *multipart.FileHeader) (int, int, error) {
	src, err := file.Open()
	if err != nil {
		return 0, 0, err
	}
	defer src.Close()

	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
