package models

import (
	"time"

	"gorm.io/datatypes"
)

// TenantDocument carries the columns shared by every tenant-scoped
// collection: the owning tenant, authorship and the trash marker.
//
// DeletedAt is a plain timestamp rather than gorm.DeletedAt on purpose:
// soft-deleted rows must stay reachable by ordinary queries so that
// top-level users can list and restore trash. Hiding trash from tenant
// users is the access layer's job, expressed as a where filter.
type TenantDocument struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TenantID  uint       `gorm:"index" json:"tenant_id"`
	Tenant    *Tenant    `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	CreatedBy uint       `gorm:"index" json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// Doc exposes the embedded shared columns, letting collection-agnostic code
// stamp ownership and shield them across a body re-parse.
func (d *TenantDocument) Doc() *TenantDocument { return d }

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Page struct {
	TenantDocument
	Title       string         `gorm:"size:255" json:"title"`
	Slug        string         `gorm:"size:255;index" json:"slug"`
	Content     datatypes.JSON `json:"content,omitempty"`
	Status      string         `gorm:"size:20;default:'draft';index" json:"status"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

type Post struct {
	TenantDocument
	Title       string         `gorm:"size:255" json:"title"`
	Slug        string         `gorm:"size:255;index" json:"slug"`
	Content     datatypes.JSON `json:"content,omitempty"`
	Status      string         `gorm:"size:20;default:'draft';index" json:"status"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

type Category struct {
	TenantDocument
	Title string `gorm:"size:255" json:"title"`
	Slug  string `gorm:"size:255;index" json:"slug"`
}

type Header struct {
	TenantDocument
	NavItems datatypes.JSON `json:"nav_items,omitempty"`
}

type Footer struct {
	TenantDocument
	NavItems datatypes.JSON `json:"nav_items,omitempty"`
}

type Section struct {
	TenantDocument
	Title  string         `gorm:"size:255" json:"title"`
	Layout datatypes.JSON `json:"layout,omitempty"`
}
