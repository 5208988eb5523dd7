package models

import (
	"time"

	"gorm.io/datatypes"
)

// Top-level roles are stored on the user's scalar Role column and span all
// tenants. Tenant roles live on the user's single TenantMembership row.
const (
	RoleSuperAdmin   = "super-admin"
	RoleSuperEditor  = "super-editor"
	RoleTenantAdmin  = "tenant-admin"
	RoleTenantViewer = "tenant-viewer"
	RoleGuestWriter  = "guest-writer"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100" json:"name"`
	Email    string `gorm:"uniqueIndex;size:100" json:"email"`
	Password string `gorm:"size:255" json:"-"`
	Provider string `gorm:"size:50" json:"provider"`
	Status   string `gorm:"size:20;default:'active'" json:"status"`

	// Empty for tenant-scoped users.
	Role string `gorm:"size:20;index" json:"role,omitempty"`

	// Tenant-scoped users carry exactly one membership; top-level users none.
	Tenants []TenantMembership `gorm:"foreignKey:UserID" json:"tenants,omitempty"`

	GuestWriterPostLimit int `gorm:"default:1" json:"guest_writer_post_limit"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// TenantMembership binds a user to one tenant with a list of tenant role
// tags. The unique index on UserID is what forbids multi-tenant membership
// for non-top-level users.
type TenantMembership struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	UserID   uint           `gorm:"uniqueIndex" json:"user_id"`
	TenantID uint           `gorm:"index" json:"tenant_id"`
	Tenant   *Tenant        `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Roles    datatypes.JSON `json:"roles"` // e.g. ["tenant-admin"]

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
