package content

import (
	"time"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/auth"
	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/response"
	"github.com/gofiber/fiber/v2"
)

// VisibleCollectionsHandler lists the collections the requester may manage,
// for admin navigation.
func VisibleCollectionsHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)

	visible := []access.Collection{}
	for _, col := range access.ManagedCollections {
		if rc.CanAdminVisible(col) {
			visible = append(visible, col)
		}
	}

	return response.Success(c, visible, "Visible collections")
}

func ListDocumentsHandler(c *fiber.Ctx) error {
	col, e, ok := lookup(c.Params("collection"))
	if !ok {
		return response.NotFound(c, "Collection")
	}
	rc := auth.AccessContext(c)

	d := rc.ReadAccess(col)
	if !d.Allowed {
		return response.Forbidden(c, "You cannot read this collection")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	tx := d.Apply(database.DB.Model(e.model()))

	if status := c.Query("status"); status != "" {
		tx = access.Eq("status", status).Apply(tx)
	}
	if tag := c.Query("tag"); tag != "" && col == access.CollectionMedia {
		tx = access.Contains("tags", tag).Apply(tx)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return response.InternalError(c, "Failed to count documents")
	}

	list := e.list()
	if err := tx.Offset((page - 1) * limit).Limit(limit).Find(list).Error; err != nil {
		return response.InternalError(c, "Failed to fetch documents")
	}

	return response.SuccessWithMeta(c, list, response.CalculateMeta(page, limit, total), "Documents retrieved")
}

func GetDocumentHandler(c *fiber.Ctx) error {
	col, e, ok := lookup(c.Params("collection"))
	if !ok {
		return response.NotFound(c, "Collection")
	}
	rc := auth.AccessContext(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid document ID", nil)
	}

	d := rc.ReadAccess(col)
	if !d.Allowed {
		return response.Forbidden(c, "You cannot read this collection")
	}

	m := e.model()
	if err := d.Apply(database.DB.Model(m)).Where("id = ?", id).First(m).Error; err != nil {
		return response.NotFound(c, "Document")
	}

	return response.Success(c, m, "Document retrieved")
}

func CreateDocumentHandler(c *fiber.Ctx) error {
	col, e, ok := lookup(c.Params("collection"))
	if !ok {
		return response.NotFound(c, "Collection")
	}
	rc := auth.AccessContext(c)
	u := auth.CurrentUser(c)

	if !rc.CanCreate(col) {
		return response.Forbidden(c, "You cannot create documents in this collection")
	}

	tenantID, ok := rc.ResolveTenant()
	if !ok {
		return response.BadRequest(c, "No tenant selected", nil)
	}

	m := e.model()
	if err := c.BodyParser(m); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	doc := m.Doc()
	*doc = models.TenantDocument{}
	doc.TenantID = tenantID
	doc.CreatedBy = u.ID

	forceGuestWriterFields(u, tenantID, m)

	if err := database.DB.Create(m).Error; err != nil {
		return response.InternalError(c, "Failed to create document")
	}

	return response.Created(c, m, "Document created")
}

func UpdateDocumentHandler(c *fiber.Ctx) error {
	col, e, ok := lookup(c.Params("collection"))
	if !ok {
		return response.NotFound(c, "Collection")
	}
	rc := auth.AccessContext(c)
	u := auth.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid document ID", nil)
	}

	d := rc.UpdateAccess(col)
	if !d.Allowed {
		return response.Forbidden(c, "You cannot update documents in this collection")
	}

	// The predicate's filter decides reachability; an id outside its scope
	// reads as not-found no matter what the request names.
	m := e.model()
	if err := d.Apply(database.DB.Model(m)).Where("id = ?", id).First(m).Error; err != nil {
		return response.NotFound(c, "Document")
	}

	saved := *m.Doc()
	if err := c.BodyParser(m); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	*m.Doc() = saved

	tenantID, _ := rc.ResolveTenant()
	forceGuestWriterFields(u, tenantID, m)

	if err := database.DB.Save(m).Error; err != nil {
		return response.InternalError(c, "Failed to update document")
	}

	return response.Success(c, m, "Document updated")
}

func DeleteDocumentHandler(c *fiber.Ctx) error {
	col, e, ok := lookup(c.Params("collection"))
	if !ok {
		return response.NotFound(c, "Collection")
	}
	rc := auth.AccessContext(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid document ID", nil)
	}

	d := rc.DeleteAccess(col)
	if !d.Allowed {
		return response.Forbidden(c, "You cannot delete documents in this collection")
	}

	now := time.Now()
	res := d.Apply(database.DB.Model(e.model())).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", &now)
	if res.Error != nil {
		return response.InternalError(c, "Failed to delete document")
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "Document")
	}

	return response.Success(c, nil, "Document moved to trash")
}

func RestoreDocumentHandler(c *fiber.Ctx) error {
	_, e, ok := lookup(c.Params("collection"))
	if !ok {
		return response.NotFound(c, "Collection")
	}
	rc := auth.AccessContext(c)

	if !rc.CanRestore() {
		return response.Forbidden(c, "Only top-level users can restore from trash")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid document ID", nil)
	}

	res := database.DB.Model(e.model()).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return response.InternalError(c, "Failed to restore document")
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "Document")
	}

	return response.Success(c, nil, "Document restored")
}

// forceGuestWriterFields pins authorship and draft status for guest-writers:
// they cannot publish their own posts or hand them to another author, which
// would also sidestep the post quota.
func forceGuestWriterFields(u *models.User, tenantID uint, m document) {
	if u == nil || access.IsTopLevel(u) {
		return
	}
	if access.HasTenantRole(u, tenantID, models.RoleTenantAdmin) {
		return
	}
	if !access.HasTenantRole(u, tenantID, models.RoleGuestWriter) {
		return
	}

	m.Doc().CreatedBy = u.ID
	if p, ok := m.(*models.Post); ok {
		p.Status = models.StatusDraft
		p.PublishedAt = nil
	}
}
