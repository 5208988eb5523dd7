package access

import (
	"github.com/crestcms/crest/internal/models"
)

// CanAdminVisible reports whether the collection appears at all in a
// management view for this requester. Guest-writers see only posts, a
// hard-coded restriction that overrides the tenant's allow-list in both
// directions.
func (rc *Context) CanAdminVisible(col Collection) bool {
	u := rc.User
	if IsTopLevel(u) {
		return true
	}
	if u == nil {
		return false
	}
	if HasGuestWriterRole(u) && !HasAnyTenantRole(u, models.RoleTenantAdmin) {
		return col == CollectionPosts
	}
	tenantID, ok := rc.ResolveTenant()
	if !ok {
		return false
	}
	return rc.TenantAllows(tenantID, col)
}

// CanCreate decides document creation on a managed collection.
func (rc *Context) CanCreate(col Collection) bool {
	u := rc.User
	if u == nil {
		return false
	}

	tenantID, ok := rc.ResolveTenant()

	if IsTopLevel(u) {
		// A tenant must be selected first; otherwise the document would be
		// orphaned across tenants.
		return ok
	}

	if !ok || !rc.TenantAllows(tenantID, col) {
		return false
	}

	if HasTenantRole(u, tenantID, models.RoleTenantAdmin) {
		return true
	}
	if HasTenantRole(u, tenantID, models.RoleGuestWriter) {
		if col != CollectionPosts {
			return false
		}
		return rc.CanGuestWriterCreate(u)
	}
	return false
}

// ReadAccess builds the read predicate for a managed collection.
//
// Top-level users are unrestricted and see trash, supporting administrative
// recovery. Tenant-scoped users are confined to their tenants with trash
// hidden. Anonymous requests pass only where the resolved tenant lists the
// collection in allow_public_read, scoped to live rows of that tenant and,
// for draft/published collections, to published rows.
func (rc *Context) ReadAccess(col Collection) Decision {
	u := rc.User
	if IsTopLevel(u) {
		return Allow()
	}

	tenantID, ok := rc.ResolveTenant()

	if u == nil {
		if !ok {
			return Deny()
		}
		if !rc.TenantAllows(tenantID, col) {
			return Scoped(Nothing())
		}
		if !rc.PublicReadAllows(tenantID, col) {
			return Deny()
		}
		f := And(Eq("tenant_id", tenantID), NotDeleted())
		if publishedCollections[col] {
			f = And(f, Eq("status", models.StatusPublished))
		}
		return Scoped(f)
	}

	if len(AssignedTenantIDs(u)) == 0 {
		return Deny()
	}
	// The allow-list gate is checked against the user's assignments, not the
	// resolved tenant: a cookie naming an unrelated tenant fails resolution,
	// and must not widen visibility past the allow-list.
	var ids []uint
	for _, id := range AssignedTenantIDs(u) {
		if rc.TenantAllows(id, col) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Scoped(Nothing())
	}
	return Scoped(And(In("tenant_id", ids), NotDeleted()))
}

// UpdateAccess builds the update predicate for a managed collection.
// Tenant-admins cannot touch trash (restoring is a top-level capability);
// guest-writers are further confined to documents they authored.
func (rc *Context) UpdateAccess(col Collection) Decision {
	u := rc.User
	if IsTopLevel(u) {
		return Allow()
	}
	if u == nil {
		return Deny()
	}

	tenantID, ok := rc.ResolveTenant()
	if !ok {
		return Deny()
	}
	if !rc.TenantAllows(tenantID, col) {
		return Scoped(Nothing())
	}

	ids := AssignedTenantIDs(u)
	if HasTenantRole(u, tenantID, models.RoleTenantAdmin) {
		return Scoped(And(In("tenant_id", ids), NotDeleted()))
	}
	if HasTenantRole(u, tenantID, models.RoleGuestWriter) {
		return Scoped(And(In("tenant_id", ids), NotDeleted(), Eq("created_by", u.ID)))
	}
	return Deny()
}

// DeleteAccess builds the soft-delete predicate. Guest-writers may not
// delete at all; hard deletion and restore stay with top-level users.
func (rc *Context) DeleteAccess(col Collection) Decision {
	u := rc.User
	if IsTopLevel(u) {
		return Allow()
	}
	if u == nil {
		return Deny()
	}

	tenantID, ok := rc.ResolveTenant()
	if !ok {
		return Deny()
	}
	if !rc.TenantAllows(tenantID, col) {
		return Scoped(Nothing())
	}
	if !HasTenantRole(u, tenantID, models.RoleTenantAdmin) {
		return Deny()
	}
	return Scoped(And(In("tenant_id", AssignedTenantIDs(u)), NotDeleted()))
}

// CanRestore reports whether the requester may pull documents back out of
// trash.
func (rc *Context) CanRestore() bool {
	return IsTopLevel(rc.User)
}

// CanManageTenants gates the tenants collection's mutating operations.
func (rc *Context) CanManageTenants() bool {
	return IsTopLevel(rc.User)
}

// TenantReadAccess scopes reads on the tenants collection: top-level users
// see every tenant including trash, tenant-scoped users only their own live
// tenant rows.
func (rc *Context) TenantReadAccess() Decision {
	u := rc.User
	if IsTopLevel(u) {
		return Allow()
	}
	if u == nil {
		return Deny()
	}
	ids := AssignedTenantIDs(u)
	if len(ids) == 0 {
		return Deny()
	}
	return Scoped(And(In("id", ids), NotDeleted()))
}

// UserReadAccess scopes reads on the users collection. Super-admins are
// unrestricted. A super-editor browsing unscoped sees only top-level users;
// scoped, they additionally see the tenant's members. Tenant-admins see
// their tenant's members and themselves; everyone else sees only themselves.
func (rc *Context) UserReadAccess() Decision {
	u := rc.User
	if u == nil {
		return Deny()
	}
	if IsSuperAdmin(u) {
		return Allow()
	}

	topLevelRoles := []string{models.RoleSuperAdmin, models.RoleSuperEditor}

	if IsSuperEditor(u) {
		tenantID, ok := rc.ResolveTenant()
		if !ok {
			return Scoped(In("role", topLevelRoles))
		}
		return Scoped(Or(
			In("role", topLevelRoles),
			And(In("id", rc.tenantMemberIDs(tenantID)), NotDeleted()),
		))
	}

	tenantID, ok := rc.ResolveTenant()
	if ok && HasTenantRole(u, tenantID, models.RoleTenantAdmin) {
		members := rc.tenantMemberIDs(tenantID)
		return Scoped(And(
			Or(In("id", members), Eq("id", u.ID)),
			NotDeleted(),
		))
	}
	return Scoped(Eq("id", u.ID))
}

// tenantMemberIDs resolves the user ids belonging to a tenant. Memoized for
// the request; a failing lookup yields an empty set, which scopes to nothing.
func (rc *Context) tenantMemberIDs(tenantID uint) []uint {
	return rc.memoize("tenant-members", tenantID, func() interface{} {
		var ids []uint
		err := rc.DB.Model(&models.TenantMembership{}).
			Where("tenant_id = ?", tenantID).
			Pluck("user_id", &ids).Error
		if err != nil {
			return []uint{}
		}
		return ids
	}).([]uint)
}
