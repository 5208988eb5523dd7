package access

import (
	"encoding/json"

	"github.com/crestcms/crest/internal/models"
)

func IsSuperAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleSuperAdmin
}

func IsSuperEditor(u *models.User) bool {
	return u != nil && u.Role == models.RoleSuperEditor
}

func IsTopLevel(u *models.User) bool {
	return IsSuperAdmin(u) || IsSuperEditor(u)
}

// AssignedTenantIDs returns the tenants a user belongs to. Top-level users
// have none; tenant-scoped users exactly one.
func AssignedTenantIDs(u *models.User) []uint {
	if u == nil {
		return nil
	}
	ids := make([]uint, 0, len(u.Tenants))
	for _, m := range u.Tenants {
		if m.TenantID != 0 {
			ids = append(ids, m.TenantID)
		}
	}
	return ids
}

// IsAssignedTo reports whether the user has a membership in the tenant.
func IsAssignedTo(u *models.User, tenantID uint) bool {
	for _, id := range AssignedTenantIDs(u) {
		if id == tenantID {
			return true
		}
	}
	return false
}

func membershipRoles(m models.TenantMembership) []string {
	var roles []string
	if len(m.Roles) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Roles, &roles); err != nil {
		return nil
	}
	return roles
}

// HasTenantRole reports whether the user holds the role in the tenant.
func HasTenantRole(u *models.User, tenantID uint, role string) bool {
	if u == nil {
		return false
	}
	for _, m := range u.Tenants {
		if m.TenantID != tenantID {
			continue
		}
		for _, r := range membershipRoles(m) {
			if r == role {
				return true
			}
		}
	}
	return false
}

// HasAnyTenantRole reports whether the user holds the role in any tenant.
func HasAnyTenantRole(u *models.User, role string) bool {
	if u == nil {
		return false
	}
	for _, m := range u.Tenants {
		for _, r := range membershipRoles(m) {
			if r == role {
				return true
			}
		}
	}
	return false
}

// HasGuestWriterRole answers the guest-writer check over data of uncertain
// shape: a loaded *models.User, or a decoded JSON payload as it arrives from
// a client form ({"tenants":[{"roles":["guest-writer"]}]}). Malformed or
// partial input is treated as no-match, never an error.
func HasGuestWriterRole(v interface{}) bool {
	switch t := v.(type) {
	case *models.User:
		return HasAnyTenantRole(t, models.RoleGuestWriter)
	case models.User:
		return HasAnyTenantRole(&t, models.RoleGuestWriter)
	case map[string]interface{}:
		entries, ok := t["tenants"].([]interface{})
		if !ok {
			return false
		}
		for _, e := range entries {
			entry, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			roles, ok := entry["roles"].([]interface{})
			if !ok {
				continue
			}
			for _, r := range roles {
				if s, ok := r.(string); ok && s == models.RoleGuestWriter {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}
