package access

import "github.com/crestcms/crest/internal/tenancy"

type resolvedTenant struct {
	id uint
	ok bool
}

// ResolveTenant determines the effective tenant for this request.
//
// Priority: a context-preset tenant (attached by trusted upstream handling,
// already access-checked) wins outright. Next the payload-tenant cookie:
// trusted as-is for anonymous requests (it only scopes public visibility,
// which allow_public_read gates separately) and for top-level users; for
// tenant-scoped users it is accepted only when it names one of their own
// tenants, so a tampered cookie cannot reach a foreign tenant. A top-level
// user browsing in top-level mode is unscoped even with a cookie set.
// Finally, a tenant-scoped user with no cookie falls back to their single
// assignment.
func (rc *Context) ResolveTenant() (uint, bool) {
	r := rc.memoize("resolved-tenant", 0, func() interface{} {
		id, ok := rc.resolveTenant()
		return resolvedTenant{id: id, ok: ok}
	}).(resolvedTenant)
	return r.id, r.ok
}

func (rc *Context) resolveTenant() (uint, bool) {
	if rc.PresetTenant != nil {
		// Malformed preset values normalize to "no tenant", never wildcard.
		return tenancy.NormalizeID(rc.PresetTenant)
	}

	if IsTopLevel(rc.User) && tenancy.TopLevelMode(rc.CookieHeader) {
		return 0, false
	}

	cookieTenant, hasCookie := tenancy.CookieTenant(rc.CookieHeader)

	switch {
	case rc.User == nil:
		return cookieTenant, hasCookie
	case IsTopLevel(rc.User):
		return cookieTenant, hasCookie
	default:
		if hasCookie {
			// A cookie naming a foreign tenant is discarded, not repaired:
			// spoofed values must never resolve.
			if IsAssignedTo(rc.User, cookieTenant) {
				return cookieTenant, true
			}
			return 0, false
		}
		if ids := AssignedTenantIDs(rc.User); len(ids) == 1 {
			return ids[0], true
		}
		return 0, false
	}
}
