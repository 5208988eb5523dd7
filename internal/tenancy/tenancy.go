package tenancy

import (
	"strconv"
	"strings"
)

const (
	// TenantCookie carries the selected tenant id as a string. It is set on
	// login for tenant-scoped users and by the admin tenant switcher for
	// top-level users.
	TenantCookie = "payload-tenant"

	// TopLevelCookie is "true" while a top-level user browses unscoped. The
	// resolver then treats TenantCookie as absent.
	TopLevelCookie = "payload-top-level"
)

// NormalizeID coerces the loosely-shaped tenant references that reach the
// resolver (raw ids, numeric strings, {"id": ...} objects) into a tenant id.
// Anything else normalizes to not-found, never to a wildcard.
func NormalizeID(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case uint:
		return t, t != 0
	case int:
		if t <= 0 {
			return 0, false
		}
		return uint(t), true
	case int64:
		if t <= 0 {
			return 0, false
		}
		return uint(t), true
	case float64:
		if t <= 0 || t != float64(uint(t)) {
			return 0, false
		}
		return uint(t), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 32)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	case map[string]interface{}:
		id, ok := t["id"]
		if !ok {
			return 0, false
		}
		if _, nested := id.(map[string]interface{}); nested {
			return 0, false
		}
		return NormalizeID(id)
	default:
		return 0, false
	}
}

// CookieValue extracts a cookie from a raw Cookie header.
func CookieValue(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		k, v, found := strings.Cut(part, "=")
		if !found || k != name {
			continue
		}
		if v == "" {
			return "", false
		}
		return v, true
	}
	return "", false
}

// CookieTenant reads the tenant cookie off a raw Cookie header.
func CookieTenant(header string) (uint, bool) {
	v, ok := CookieValue(header, TenantCookie)
	if !ok {
		return 0, false
	}
	return NormalizeID(v)
}

// TopLevelMode reports whether the unscoped-browsing cookie is set.
func TopLevelMode(header string) bool {
	v, _ := CookieValue(header, TopLevelCookie)
	return v == "true"
}
