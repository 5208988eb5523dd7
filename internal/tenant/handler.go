package tenant

import (
	"encoding/json"
	"errors"

	"github.com/crestcms/crest/internal/auth"
	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type tenantBody struct {
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	Domain             string    `json:"domain"`
	AllowedCollections *[]string `json:"allowed_collections"`
	AllowPublicRead    *[]string `json:"allow_public_read"`
}

func CreateTenantHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)
	if !rc.CanManageTenants() {
		return response.Forbidden(c, "Only top-level users can manage tenants")
	}

	var body tenantBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.Name == "" || body.Slug == "" {
		return response.ValidationError(c, map[string]string{
			"name": "name is required",
			"slug": "slug is required",
		})
	}

	var existing models.Tenant
	if err := database.DB.Where("slug = ?", body.Slug).First(&existing).Error; err == nil {
		return response.Conflict(c, "A tenant with this slug already exists")
	}

	t := models.Tenant{
		Name:   body.Name,
		Slug:   body.Slug,
		Domain: body.Domain,
	}
	applyCollectionLists(&t, body)

	if err := CreateTenant(database.DB, &t); err != nil {
		return response.InternalError(c, "Failed to create tenant")
	}

	return response.Created(c, t, "Tenant created successfully")
}

func ListTenantsHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)

	d := rc.TenantReadAccess()
	if !d.Allowed {
		return response.Forbidden(c, "You cannot list tenants")
	}

	var tenants []models.Tenant
	if err := d.Apply(database.DB.Model(&models.Tenant{})).Find(&tenants).Error; err != nil {
		return response.InternalError(c, "Failed to fetch tenants")
	}

	return response.Success(c, tenants, "Tenants retrieved successfully")
}

func GetTenantHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	d := rc.TenantReadAccess()
	if !d.Allowed {
		return response.Forbidden(c, "You cannot view tenants")
	}

	var t models.Tenant
	if err := d.Apply(database.DB.Model(&models.Tenant{})).
		Where("id = ?", id).First(&t).Error; err != nil {
		return response.NotFound(c, "Tenant")
	}

	return response.Success(c, t, "Tenant retrieved successfully")
}

func UpdateTenantHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)
	if !rc.CanManageTenants() {
		return response.Forbidden(c, "Only top-level users can manage tenants")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	var body tenantBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var t models.Tenant
	if err := database.DB.First(&t, id).Error; err != nil {
		return response.NotFound(c, "Tenant")
	}

	if body.Name != "" {
		t.Name = body.Name
	}
	if body.Slug != "" && body.Slug != t.Slug {
		var existing models.Tenant
		if err := database.DB.Where("slug = ? AND id != ?", body.Slug, id).First(&existing).Error; err == nil {
			return response.Conflict(c, "Slug already taken")
		}
		t.Slug = body.Slug
	}
	if body.Domain != "" {
		t.Domain = body.Domain
	}
	applyCollectionLists(&t, body)

	if err := SaveTenant(database.DB, &t); err != nil {
		return response.InternalError(c, "Failed to update tenant")
	}

	return response.Success(c, t, "Tenant updated successfully")
}

func DeleteTenantHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)
	if !rc.CanManageTenants() {
		return response.Forbidden(c, "Only top-level users can manage tenants")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	if err := SoftDeleteTenant(database.DB, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Tenant")
		}
		return response.InternalError(c, "Failed to delete tenant")
	}

	return response.Success(c, nil, "Tenant moved to trash")
}

func RestoreTenantHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)
	if !rc.CanManageTenants() {
		return response.Forbidden(c, "Only top-level users can manage tenants")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid tenant ID", nil)
	}

	if err := RestoreTenant(database.DB, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Tenant")
		}
		return response.InternalError(c, "Failed to restore tenant")
	}

	return response.Success(c, nil, "Tenant restored")
}

func applyCollectionLists(t *models.Tenant, body tenantBody) {
	if body.AllowedCollections != nil {
		raw, _ := json.Marshal(*body.AllowedCollections)
		t.AllowedCollections = datatypes.JSON(raw)
	}
	if body.AllowPublicRead != nil {
		raw, _ := json.Marshal(*body.AllowPublicRead)
		t.AllowPublicRead = datatypes.JSON(raw)
	}
}
