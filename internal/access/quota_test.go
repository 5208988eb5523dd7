package access_test

import (
	"testing"
	"time"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/testutils"
	"github.com/stretchr/testify/assert"
)

func TestGuestWriterQuota(t *testing.T) {
	db := testutils.TestDB(t)

	tenant := testutils.CreateTenant(t, db, "alpha", nil, nil)
	writer := testutils.CreateTenantUser(t, db, "writer@example.com", tenant.ID, models.RoleGuestWriter)

	rc := func() *access.Context { return access.NewContext(db, writer, "", "") }

	t.Run("Under the default limit", func(t *testing.T) {
		writer.GuestWriterPostLimit = 1
		assert.True(t, rc().CanGuestWriterCreate(writer))
	})

	t.Run("Drafts never count against the ceiling", func(t *testing.T) {
		writer.GuestWriterPostLimit = 1
		for i := 0; i < 3; i++ {
			post := &models.Post{Title: "Draft", Slug: "", Status: models.StatusDraft}
			post.TenantID = tenant.ID
			post.CreatedBy = writer.ID
			assert.NoError(t, db.Create(post).Error)
		}
		assert.True(t, rc().CanGuestWriterCreate(writer))
	})

	t.Run("Published posts count", func(t *testing.T) {
		writer.GuestWriterPostLimit = 1
		testutils.CreatePost(t, db, tenant.ID, writer.ID, models.StatusPublished)
		assert.False(t, rc().CanGuestWriterCreate(writer))
	})

	t.Run("Raised limit takes effect on the session's record", func(t *testing.T) {
		writer.GuestWriterPostLimit = 3
		assert.True(t, rc().CanGuestWriterCreate(writer))
	})

	t.Run("A scheduled draft counts too", func(t *testing.T) {
		writer.GuestWriterPostLimit = 2
		when := time.Now().Add(24 * time.Hour)
		scheduled := &models.Post{Title: "Scheduled", Slug: "scheduled", Status: models.StatusDraft, PublishedAt: &when}
		scheduled.TenantID = tenant.ID
		scheduled.CreatedBy = writer.ID
		assert.NoError(t, db.Create(scheduled).Error)

		// One published plus one scheduled = at the ceiling of two.
		assert.False(t, rc().CanGuestWriterCreate(writer))
	})

	t.Run("Another author's posts are not attributed", func(t *testing.T) {
		other := testutils.CreateTenantUser(t, db, "other@example.com", tenant.ID, models.RoleGuestWriter)
		other.GuestWriterPostLimit = 1
		assert.True(t, rc().CanGuestWriterCreate(other))
	})

	t.Run("Zero or negative limit blocks creation", func(t *testing.T) {
		writer.GuestWriterPostLimit = 0
		assert.False(t, rc().CanGuestWriterCreate(writer))
		writer.GuestWriterPostLimit = -1
		assert.False(t, rc().CanGuestWriterCreate(writer))
	})

	t.Run("Nil user never passes", func(t *testing.T) {
		assert.False(t, rc().CanGuestWriterCreate(nil))
	})
}
