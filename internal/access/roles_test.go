package access_test

import (
	"testing"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func tenantUser(tenantID uint, roles string) *models.User {
	return &models.User{
		Tenants: []models.TenantMembership{
			{TenantID: tenantID, Roles: datatypes.JSON(roles)},
		},
	}
}

func TestTopLevelRoles(t *testing.T) {
	admin := &models.User{Role: models.RoleSuperAdmin}
	editor := &models.User{Role: models.RoleSuperEditor}
	scoped := tenantUser(1, `["tenant-admin"]`)

	assert.True(t, access.IsSuperAdmin(admin))
	assert.False(t, access.IsSuperAdmin(editor))
	assert.True(t, access.IsTopLevel(editor))
	assert.False(t, access.IsTopLevel(scoped))
	assert.False(t, access.IsTopLevel(nil))
}

func TestTenantRoles(t *testing.T) {
	u := tenantUser(2, `["tenant-admin","guest-writer"]`)

	t.Run("Role in the right tenant", func(t *testing.T) {
		assert.True(t, access.HasTenantRole(u, 2, models.RoleTenantAdmin))
		assert.True(t, access.HasTenantRole(u, 2, models.RoleGuestWriter))
		assert.False(t, access.HasTenantRole(u, 2, models.RoleTenantViewer))
	})

	t.Run("Role never leaks into another tenant", func(t *testing.T) {
		assert.False(t, access.HasTenantRole(u, 3, models.RoleTenantAdmin))
	})

	t.Run("Nil and malformed memberships", func(t *testing.T) {
		assert.False(t, access.HasTenantRole(nil, 2, models.RoleTenantAdmin))
		broken := tenantUser(2, `not-json`)
		assert.False(t, access.HasTenantRole(broken, 2, models.RoleTenantAdmin))
		empty := tenantUser(2, ``)
		assert.False(t, access.HasTenantRole(empty, 2, models.RoleTenantAdmin))
	})

	t.Run("Assigned tenant ids", func(t *testing.T) {
		assert.Equal(t, []uint{2}, access.AssignedTenantIDs(u))
		assert.Empty(t, access.AssignedTenantIDs(&models.User{Role: models.RoleSuperAdmin}))
		assert.True(t, access.IsAssignedTo(u, 2))
		assert.False(t, access.IsAssignedTo(u, 9))
	})
}

func TestHasGuestWriterRole(t *testing.T) {
	t.Run("Loaded user", func(t *testing.T) {
		assert.True(t, access.HasGuestWriterRole(tenantUser(1, `["guest-writer"]`)))
		assert.False(t, access.HasGuestWriterRole(tenantUser(1, `["tenant-admin"]`)))
	})

	t.Run("User by value", func(t *testing.T) {
		u := *tenantUser(1, `["guest-writer"]`)
		assert.True(t, access.HasGuestWriterRole(u))
	})

	t.Run("Client form payload", func(t *testing.T) {
		payload := map[string]interface{}{
			"tenants": []interface{}{
				map[string]interface{}{
					"tenant": map[string]interface{}{"id": float64(1)},
					"roles":  []interface{}{"guest-writer"},
				},
			},
		}
		assert.True(t, access.HasGuestWriterRole(payload))
	})

	t.Run("Malformed payloads are no-match, never a panic", func(t *testing.T) {
		cases := []interface{}{
			nil,
			"guest-writer",
			42,
			map[string]interface{}{},
			map[string]interface{}{"tenants": "nope"},
			map[string]interface{}{"tenants": []interface{}{"nope"}},
			map[string]interface{}{"tenants": []interface{}{
				map[string]interface{}{"roles": "guest-writer"},
			}},
			map[string]interface{}{"tenants": []interface{}{
				map[string]interface{}{"roles": []interface{}{7}},
			}},
		}
		for _, c := range cases {
			assert.False(t, access.HasGuestWriterRole(c))
		}
	})
}
