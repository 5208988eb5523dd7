package access

import "github.com/crestcms/crest/internal/models"

// CanGuestWriterCreate enforces the guest-writer post ceiling. The limit is
// read from the session-loaded user record, not re-fetched: a limit raised
// mid-session takes effect on the next login, and a lowered one cannot be
// raced upward. The count is issued fresh on every check because it gates a
// security decision.
//
// Posts that are published by status OR carry a publish date both count;
// scheduling a post is not a way around the ceiling.
func (rc *Context) CanGuestWriterCreate(u *models.User) bool {
	if u == nil {
		return false
	}
	limit := u.GuestWriterPostLimit
	if limit <= 0 {
		return false
	}

	var n int64
	err := rc.DB.Model(&models.Post{}).
		Where("created_by = ?", u.ID).
		Where("status = ? OR published_at IS NOT NULL", models.StatusPublished).
		Count(&n).Error
	if err != nil {
		return false
	}
	return n < int64(limit)
}
