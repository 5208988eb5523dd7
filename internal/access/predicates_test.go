package access_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/testutils"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func tenantCookie(id uint) string {
	return fmt.Sprintf("payload-tenant=%d", id)
}

func postIDs(t *testing.T, db *gorm.DB, d access.Decision) []uint {
	var ids []uint
	err := d.Apply(db.Model(&models.Post{})).Order("id asc").Pluck("id", &ids).Error
	assert.NoError(t, err)
	return ids
}

func TestReadAccess(t *testing.T) {
	db := testutils.TestDB(t)

	tenantA := testutils.CreateTenant(t, db, "alpha", []string{"pages", "posts"}, []string{"posts"})
	tenantB := testutils.CreateTenant(t, db, "beta", nil, nil)

	admin := testutils.CreateTopLevelUser(t, db, "admin@example.com", models.RoleSuperAdmin)
	memberA := testutils.CreateTenantUser(t, db, "a@example.com", tenantA.ID, models.RoleTenantAdmin)

	publishedA := testutils.CreatePost(t, db, tenantA.ID, memberA.ID, models.StatusPublished)
	draftA := &models.Post{Title: "Draft", Slug: "draft-a", Status: models.StatusDraft}
	draftA.TenantID = tenantA.ID
	draftA.CreatedBy = memberA.ID
	assert.NoError(t, db.Create(draftA).Error)

	trashedA := &models.Post{Title: "Trashed", Slug: "trashed-a", Status: models.StatusPublished}
	trashedA.TenantID = tenantA.ID
	now := time.Now()
	trashedA.DeletedAt = &now
	assert.NoError(t, db.Create(trashedA).Error)

	foreignB := testutils.CreatePost(t, db, tenantB.ID, admin.ID, models.StatusPublished)

	t.Run("Top-level user sees everything including trash", func(t *testing.T) {
		rc := access.NewContext(db, admin, "", "")
		d := rc.ReadAccess(access.CollectionPosts)
		assert.True(t, d.Allowed)
		assert.Nil(t, d.Filter)
		assert.Equal(t, []uint{publishedA.ID, draftA.ID, trashedA.ID, foreignB.ID}, postIDs(t, db, d))
	})

	t.Run("Tenant member is confined to their tenant with trash hidden", func(t *testing.T) {
		rc := access.NewContext(db, memberA, tenantCookie(tenantA.ID), "")
		d := rc.ReadAccess(access.CollectionPosts)
		assert.True(t, d.Allowed)
		assert.NotNil(t, d.Filter)
		assert.Equal(t, []uint{publishedA.ID, draftA.ID}, postIDs(t, db, d))
	})

	t.Run("Disallowed collection lists empty instead of erroring", func(t *testing.T) {
		rc := access.NewContext(db, memberA, tenantCookie(tenantA.ID), "")
		d := rc.ReadAccess(access.CollectionSections)
		assert.True(t, d.Allowed)
		var n int64
		assert.NoError(t, d.Apply(db.Model(&models.Section{})).Count(&n).Error)
		assert.Equal(t, int64(0), n)
	})

	t.Run("Bogus cookie must not widen visibility", func(t *testing.T) {
		// A cookie naming a nonexistent tenant fails resolution; the
		// allow-list still applies through the user's assignments.
		rc := access.NewContext(db, memberA, tenantCookie(999), "")
		d := rc.ReadAccess(access.CollectionSections)
		assert.True(t, d.Allowed)
		var n int64
		assert.NoError(t, d.Apply(db.Model(&models.Section{})).Count(&n).Error)
		assert.Equal(t, int64(0), n)

		posts := rc.ReadAccess(access.CollectionPosts)
		assert.Equal(t, []uint{publishedA.ID, draftA.ID}, postIDs(t, db, posts))
	})

	t.Run("Anonymous public read returns only published rows", func(t *testing.T) {
		rc := access.NewContext(db, nil, tenantCookie(tenantA.ID), "")
		d := rc.ReadAccess(access.CollectionPosts)
		assert.True(t, d.Allowed)
		assert.Equal(t, []uint{publishedA.ID}, postIDs(t, db, d))
	})

	t.Run("Anonymous read denied off the public list", func(t *testing.T) {
		rc := access.NewContext(db, nil, tenantCookie(tenantA.ID), "")
		d := rc.ReadAccess(access.CollectionPages)
		assert.False(t, d.Allowed)
	})

	t.Run("Anonymous read without a tenant denied", func(t *testing.T) {
		rc := access.NewContext(db, nil, "", "")
		d := rc.ReadAccess(access.CollectionPosts)
		assert.False(t, d.Allowed)
	})
}

func TestWriteAccess(t *testing.T) {
	db := testutils.TestDB(t)

	tenantA := testutils.CreateTenant(t, db, "alpha", nil, nil)
	tenantB := testutils.CreateTenant(t, db, "beta", nil, nil)

	admin := testutils.CreateTopLevelUser(t, db, "admin@example.com", models.RoleSuperAdmin)
	tenantAdmin := testutils.CreateTenantUser(t, db, "ta@example.com", tenantA.ID, models.RoleTenantAdmin)
	viewer := testutils.CreateTenantUser(t, db, "viewer@example.com", tenantA.ID, models.RoleTenantViewer)
	writer := testutils.CreateTenantUser(t, db, "writer@example.com", tenantA.ID, models.RoleGuestWriter)

	ownPost := testutils.CreatePost(t, db, tenantA.ID, writer.ID, models.StatusDraft)
	adminPost := testutils.CreatePost(t, db, tenantA.ID, tenantAdmin.ID, models.StatusPublished)
	foreignPost := testutils.CreatePost(t, db, tenantB.ID, admin.ID, models.StatusPublished)

	t.Run("Tenant admin updates within their tenant only", func(t *testing.T) {
		rc := access.NewContext(db, tenantAdmin, tenantCookie(tenantA.ID), "")
		d := rc.UpdateAccess(access.CollectionPosts)
		assert.True(t, d.Allowed)
		ids := postIDs(t, db, d)
		assert.Contains(t, ids, ownPost.ID)
		assert.Contains(t, ids, adminPost.ID)
		assert.NotContains(t, ids, foreignPost.ID)
	})

	t.Run("Guest writer updates only their own documents", func(t *testing.T) {
		rc := access.NewContext(db, writer, tenantCookie(tenantA.ID), "")
		d := rc.UpdateAccess(access.CollectionPosts)
		assert.True(t, d.Allowed)
		assert.Equal(t, []uint{ownPost.ID}, postIDs(t, db, d))
	})

	t.Run("Viewer cannot update or delete", func(t *testing.T) {
		rc := access.NewContext(db, viewer, tenantCookie(tenantA.ID), "")
		assert.False(t, rc.UpdateAccess(access.CollectionPosts).Allowed)
		assert.False(t, rc.DeleteAccess(access.CollectionPosts).Allowed)
	})

	t.Run("Guest writer cannot delete", func(t *testing.T) {
		rc := access.NewContext(db, writer, tenantCookie(tenantA.ID), "")
		assert.False(t, rc.DeleteAccess(access.CollectionPosts).Allowed)
	})

	t.Run("Spoofed cookie blocks writes entirely", func(t *testing.T) {
		rc := access.NewContext(db, tenantAdmin, tenantCookie(tenantB.ID), "")
		assert.False(t, rc.UpdateAccess(access.CollectionPosts).Allowed)
		assert.False(t, rc.CanCreate(access.CollectionPosts))
	})

	t.Run("Restore and tenant management stay top-level", func(t *testing.T) {
		adminCtx := access.NewContext(db, admin, "", "")
		assert.True(t, adminCtx.CanRestore())
		assert.True(t, adminCtx.CanManageTenants())

		memberCtx := access.NewContext(db, tenantAdmin, tenantCookie(tenantA.ID), "")
		assert.False(t, memberCtx.CanRestore())
		assert.False(t, memberCtx.CanManageTenants())
	})
}

func TestCanCreate(t *testing.T) {
	db := testutils.TestDB(t)

	tenant := testutils.CreateTenant(t, db, "alpha", []string{"posts"}, nil)

	admin := testutils.CreateTopLevelUser(t, db, "admin@example.com", models.RoleSuperAdmin)
	tenantAdmin := testutils.CreateTenantUser(t, db, "ta@example.com", tenant.ID, models.RoleTenantAdmin)
	viewer := testutils.CreateTenantUser(t, db, "viewer@example.com", tenant.ID, models.RoleTenantViewer)
	writer := testutils.CreateTenantUser(t, db, "writer@example.com", tenant.ID, models.RoleGuestWriter)

	t.Run("Anonymous cannot create", func(t *testing.T) {
		rc := access.NewContext(db, nil, tenantCookie(tenant.ID), "")
		assert.False(t, rc.CanCreate(access.CollectionPosts))
	})

	t.Run("Top-level user needs a selected tenant", func(t *testing.T) {
		unscoped := access.NewContext(db, admin, "", "")
		assert.False(t, unscoped.CanCreate(access.CollectionPosts))

		scoped := access.NewContext(db, admin, tenantCookie(tenant.ID), "")
		assert.True(t, scoped.CanCreate(access.CollectionPosts))
	})

	t.Run("Tenant admin creates on allowed collections only", func(t *testing.T) {
		rc := access.NewContext(db, tenantAdmin, tenantCookie(tenant.ID), "")
		assert.True(t, rc.CanCreate(access.CollectionPosts))
		assert.False(t, rc.CanCreate(access.CollectionPages))
	})

	t.Run("Viewer cannot create", func(t *testing.T) {
		rc := access.NewContext(db, viewer, tenantCookie(tenant.ID), "")
		assert.False(t, rc.CanCreate(access.CollectionPosts))
	})

	t.Run("Guest writer creates posts only", func(t *testing.T) {
		rc := access.NewContext(db, writer, tenantCookie(tenant.ID), "")
		assert.True(t, rc.CanCreate(access.CollectionPosts))
		assert.False(t, rc.CanCreate(access.CollectionMedia))
	})
}

func TestCanAdminVisible(t *testing.T) {
	db := testutils.TestDB(t)

	tenant := testutils.CreateTenant(t, db, "alpha", []string{"pages", "posts"}, nil)

	admin := testutils.CreateTopLevelUser(t, db, "admin@example.com", models.RoleSuperAdmin)
	tenantAdmin := testutils.CreateTenantUser(t, db, "ta@example.com", tenant.ID, models.RoleTenantAdmin)
	writer := testutils.CreateTenantUser(t, db, "writer@example.com", tenant.ID, models.RoleGuestWriter)

	t.Run("Top-level user sees every collection", func(t *testing.T) {
		rc := access.NewContext(db, admin, "", "")
		for _, col := range access.ManagedCollections {
			assert.True(t, rc.CanAdminVisible(col))
		}
	})

	t.Run("Tenant admin sees the tenant's allowed collections", func(t *testing.T) {
		rc := access.NewContext(db, tenantAdmin, tenantCookie(tenant.ID), "")
		assert.True(t, rc.CanAdminVisible(access.CollectionPages))
		assert.True(t, rc.CanAdminVisible(access.CollectionPosts))
		assert.False(t, rc.CanAdminVisible(access.CollectionMedia))
	})

	t.Run("Guest writer sees posts and nothing else", func(t *testing.T) {
		rc := access.NewContext(db, writer, tenantCookie(tenant.ID), "")
		for _, col := range access.ManagedCollections {
			assert.Equal(t, col == access.CollectionPosts, rc.CanAdminVisible(col))
		}
	})

	t.Run("Anonymous sees nothing", func(t *testing.T) {
		rc := access.NewContext(db, nil, tenantCookie(tenant.ID), "")
		assert.False(t, rc.CanAdminVisible(access.CollectionPosts))
	})
}

func TestUserReadAccess(t *testing.T) {
	db := testutils.TestDB(t)

	tenantA := testutils.CreateTenant(t, db, "alpha", nil, nil)
	tenantB := testutils.CreateTenant(t, db, "beta", nil, nil)

	superAdmin := testutils.CreateTopLevelUser(t, db, "sa@example.com", models.RoleSuperAdmin)
	superEditor := testutils.CreateTopLevelUser(t, db, "se@example.com", models.RoleSuperEditor)
	adminA := testutils.CreateTenantUser(t, db, "admin-a@example.com", tenantA.ID, models.RoleTenantAdmin)
	viewerA := testutils.CreateTenantUser(t, db, "viewer-a@example.com", tenantA.ID, models.RoleTenantViewer)
	memberB := testutils.CreateTenantUser(t, db, "member-b@example.com", tenantB.ID, models.RoleTenantAdmin)

	userIDs := func(d access.Decision) []uint {
		var ids []uint
		err := d.Apply(db.Model(&models.User{})).Order("id asc").Pluck("id", &ids).Error
		assert.NoError(t, err)
		return ids
	}

	t.Run("Super admin sees all users", func(t *testing.T) {
		rc := access.NewContext(db, superAdmin, "", "")
		d := rc.UserReadAccess()
		assert.True(t, d.Allowed)
		assert.Nil(t, d.Filter)
		assert.Len(t, userIDs(d), 5)
	})

	t.Run("Super editor unscoped sees only top-level users", func(t *testing.T) {
		rc := access.NewContext(db, superEditor, "payload-top-level=true", "")
		ids := userIDs(rc.UserReadAccess())
		assert.Equal(t, []uint{superAdmin.ID, superEditor.ID}, ids)
	})

	t.Run("Super editor scoped to a tenant also sees its members", func(t *testing.T) {
		rc := access.NewContext(db, superEditor, tenantCookie(tenantA.ID), "")
		ids := userIDs(rc.UserReadAccess())
		assert.ElementsMatch(t, []uint{superAdmin.ID, superEditor.ID, adminA.ID, viewerA.ID}, ids)
		assert.NotContains(t, ids, memberB.ID)
	})

	t.Run("Tenant admin sees their tenant's members", func(t *testing.T) {
		rc := access.NewContext(db, adminA, tenantCookie(tenantA.ID), "")
		ids := userIDs(rc.UserReadAccess())
		assert.ElementsMatch(t, []uint{adminA.ID, viewerA.ID}, ids)
	})

	t.Run("Everyone else sees only themselves", func(t *testing.T) {
		rc := access.NewContext(db, viewerA, tenantCookie(tenantA.ID), "")
		assert.Equal(t, []uint{viewerA.ID}, userIDs(rc.UserReadAccess()))
	})

	t.Run("Anonymous denied", func(t *testing.T) {
		rc := access.NewContext(db, nil, "", "")
		assert.False(t, rc.UserReadAccess().Allowed)
	})

	t.Run("Scoped super editor does not see deleted members", func(t *testing.T) {
		now := time.Now()
		assert.NoError(t, db.Model(&models.User{}).Where("id = ?", viewerA.ID).
			Update("deleted_at", &now).Error)

		rc := access.NewContext(db, superEditor, tenantCookie(tenantA.ID), "")
		ids := userIDs(rc.UserReadAccess())
		assert.ElementsMatch(t, []uint{superAdmin.ID, superEditor.ID, adminA.ID}, ids)
	})
}
