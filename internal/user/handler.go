package user

import (
	"errors"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/auth"
	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func CreateUserHandler(c *fiber.Ctx) error {
	actor := auth.CurrentUser(c)

	var body struct {
		Email       string   `json:"email"`
		Password    string   `json:"password"`
		Name        string   `json:"name"`
		Role        string   `json:"role"`
		TenantID    uint     `json:"tenant_id"`
		TenantRoles []string `json:"tenant_roles"`
		PostLimit   *int     `json:"guest_writer_post_limit"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Password == "" || body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"password": "password is required",
			"name":     "name is required",
		})
	}

	// Top-level roles are handed out by super-admins only. Tenant-admins may
	// provision accounts inside their own tenant.
	switch {
	case body.Role != "":
		if body.Role != models.RoleSuperAdmin && body.Role != models.RoleSuperEditor {
			return response.BadRequest(c, "Unknown top-level role", body.Role)
		}
		if !access.IsSuperAdmin(actor) {
			return response.Forbidden(c, "Only super-admins can create top-level users")
		}
	case body.TenantID != 0:
		if !access.IsTopLevel(actor) &&
			!access.HasTenantRole(actor, body.TenantID, models.RoleTenantAdmin) {
			return response.Forbidden(c, "You cannot create users for this tenant")
		}
	default:
		if !access.IsTopLevel(actor) {
			return response.Forbidden(c, "A tenant is required")
		}
	}

	var existing models.User
	if err := database.DB.Where("email = ?", body.Email).First(&existing).Error; err == nil {
		return response.Conflict(c, "User with this email already exists")
	}

	u := models.User{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
		Role:     body.Role,
		Provider: "local",
	}
	if body.PostLimit != nil {
		u.GuestWriterPostLimit = *body.PostLimit
	} else {
		u.GuestWriterPostLimit = 1
	}

	if _, err := CreateUser(database.DB, &u); err != nil {
		return response.InternalError(c, "Failed to create user")
	}

	if body.Role == "" && body.TenantID != 0 {
		roles := body.TenantRoles
		if len(roles) == 0 {
			roles = []string{models.RoleTenantViewer}
		}
		if err := AssignTenant(database.DB, u.ID, body.TenantID, roles); err != nil {
			return response.BadRequest(c, "Failed to assign tenant", err.Error())
		}
	}

	database.DB.Preload("Tenants").First(&u, u.ID)
	u.Password = ""

	return response.Created(c, u, "User created successfully")
}

func ListUsersHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)

	d := rc.UserReadAccess()
	if !d.Allowed {
		return response.Forbidden(c, "You cannot list users")
	}

	var users []models.User
	if err := d.Apply(database.DB.Preload("Tenants").Model(&models.User{})).
		Find(&users).Error; err != nil {
		return response.InternalError(c, "Failed to fetch users")
	}

	for i := range users {
		users[i].Password = ""
	}

	return response.Success(c, users, "Users retrieved successfully")
}

func GetUserHandler(c *fiber.Ctx) error {
	rc := auth.AccessContext(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	d := rc.UserReadAccess()
	if !d.Allowed {
		return response.Forbidden(c, "You cannot view users")
	}

	var u models.User
	if err := d.Apply(database.DB.Preload("Tenants").Model(&models.User{})).
		Where("id = ?", id).First(&u).Error; err != nil {
		return response.NotFound(c, "User")
	}

	u.Password = ""
	return response.Success(c, u, "User retrieved successfully")
}

func UpdateUserHandler(c *fiber.Ctx) error {
	actor := auth.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var body struct {
		Name      string  `json:"name"`
		Email     string  `json:"email"`
		Role      *string `json:"role"`
		PostLimit *int    `json:"guest_writer_post_limit"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var u models.User
	if err := database.DB.Where("id = ? AND deleted_at IS NULL", id).First(&u).Error; err != nil {
		return response.NotFound(c, "User")
	}

	if !access.IsSuperAdmin(actor) && actor.ID != u.ID {
		return response.Forbidden(c, "You cannot update this user")
	}

	if body.Email != "" && body.Email != u.Email {
		var existing models.User
		if err := database.DB.Where("email = ? AND id != ?", body.Email, id).First(&existing).Error; err == nil {
			return response.Conflict(c, "Email already taken")
		}
		u.Email = body.Email
	}

	if body.Name != "" {
		u.Name = body.Name
	}

	if body.Role != nil {
		if !access.IsSuperAdmin(actor) {
			return response.Forbidden(c, "Only super-admins can change roles")
		}
		u.Role = *body.Role
	}

	if body.PostLimit != nil {
		if !access.IsTopLevel(actor) {
			return response.Forbidden(c, "Only top-level users can change post limits")
		}
		u.GuestWriterPostLimit = *body.PostLimit
	}

	if err := database.DB.Save(&u).Error; err != nil {
		return response.InternalError(c, "Failed to update user")
	}

	database.DB.Preload("Tenants").First(&u, u.ID)
	u.Password = ""

	return response.Success(c, u, "User updated successfully")
}

func AssignTenantHandler(c *fiber.Ctx) error {
	actor := auth.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	var body struct {
		TenantID uint     `json:"tenant_id"`
		Roles    []string `json:"roles"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.TenantID == 0 || len(body.Roles) == 0 {
		return response.ValidationError(c, map[string]string{
			"tenant_id": "tenant_id is required",
			"roles":     "at least one role is required",
		})
	}

	if !access.IsTopLevel(actor) &&
		!access.HasTenantRole(actor, body.TenantID, models.RoleTenantAdmin) {
		return response.Forbidden(c, "You cannot assign users to this tenant")
	}

	if err := AssignTenant(database.DB, uint(id), body.TenantID, body.Roles); err != nil {
		return response.BadRequest(c, "Failed to assign tenant", err.Error())
	}

	var u models.User
	database.DB.Preload("Tenants").First(&u, id)
	u.Password = ""

	return response.Success(c, u, "Tenant assigned")
}

func DeleteUserHandler(c *fiber.Ctx) error {
	actor := auth.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	if err := DeleteUser(database.DB, actor, uint(id)); err != nil {
		switch {
		case errors.Is(err, ErrSelfDeletion), errors.Is(err, ErrLastSuperAdmin):
			return response.Error(c, fiber.StatusConflict, "INVARIANT_VIOLATION", err.Error(), nil)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "User")
		default:
			return response.Forbidden(c, err.Error())
		}
	}

	return response.Success(c, nil, "User deleted")
}
