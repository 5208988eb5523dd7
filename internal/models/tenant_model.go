package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant is an isolated content namespace.
//
// AllowedCollections is a JSON array of collection slugs. A NULL column means
// the tenant was never configured and every managed collection is allowed; an
// empty array denies all of them. AllowPublicRead must stay a subset of
// AllowedCollections; the tenant service re-filters it on every write.
type Tenant struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:100" json:"name"`
	Slug   string `gorm:"uniqueIndex;size:100" json:"slug"`
	Domain string `gorm:"size:255;index" json:"domain,omitempty"`

	AllowedCollections datatypes.JSON `json:"allowed_collections,omitempty"`
	AllowPublicRead    datatypes.JSON `json:"allow_public_read,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
