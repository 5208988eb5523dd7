package access

import (
	"encoding/json"

	"github.com/crestcms/crest/internal/models"
)

// tenantCaps is the memoized snapshot of one tenant's collection toggles.
// found=false covers both a missing tenant and a failed lookup: the inputs to
// access control fail toward denial.
type tenantCaps struct {
	found bool
	// nil = allowed_collections never configured (every managed collection
	// allowed); empty = configured to deny all.
	allowed    []Collection
	configured bool
	publicRead []Collection
}

func (rc *Context) capabilities(tenantID uint) tenantCaps {
	return rc.memoize("tenant-caps", tenantID, func() interface{} {
		if tenantID == 0 || rc.DB == nil {
			return tenantCaps{}
		}
		var t models.Tenant
		err := rc.DB.Where("id = ? AND deleted_at IS NULL", tenantID).First(&t).Error
		if err != nil {
			return tenantCaps{}
		}
		caps := tenantCaps{found: true}
		if len(t.AllowedCollections) > 0 {
			caps.configured = true
			caps.allowed = decodeCollections(t.AllowedCollections)
		}
		caps.publicRead = decodeCollections(t.AllowPublicRead)
		return caps
	}).(tenantCaps)
}

func decodeCollections(raw []byte) []Collection {
	if len(raw) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return []Collection{}
	}
	cols := make([]Collection, 0, len(names))
	for _, n := range names {
		if IsManaged(Collection(n)) {
			cols = append(cols, Collection(n))
		}
	}
	return cols
}

// AllowedCollections reports the tenant's collection allow-list. ok=false
// means the tenant could not be loaded and the caller should deny. A nil list
// with ok=true means no explicit configuration: all managed collections.
func (rc *Context) AllowedCollections(tenantID uint) ([]Collection, bool) {
	caps := rc.capabilities(tenantID)
	if !caps.found {
		return nil, false
	}
	if !caps.configured {
		return nil, true
	}
	return caps.allowed, true
}

// TenantAllows reports whether the tenant may use the collection. Fail-open
// on an unconfigured allow-list, fail-closed on an empty one or on a tenant
// that cannot be loaded.
func (rc *Context) TenantAllows(tenantID uint, col Collection) bool {
	list, ok := rc.AllowedCollections(tenantID)
	if !ok {
		return false
	}
	if list == nil {
		return true
	}
	for _, c := range list {
		if c == col {
			return true
		}
	}
	return false
}

// PublicReadCollections reports which collections the tenant exposes to
// unauthenticated reads. Nil means none.
func (rc *Context) PublicReadCollections(tenantID uint) []Collection {
	caps := rc.capabilities(tenantID)
	if !caps.found {
		return nil
	}
	return caps.publicRead
}

// PublicReadAllows reports whether anonymous requests may read the
// collection under this tenant.
func (rc *Context) PublicReadAllows(tenantID uint, col Collection) bool {
	for _, c := range rc.PublicReadCollections(tenantID) {
		if c == col {
			return true
		}
	}
	return false
}
