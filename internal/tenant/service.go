package tenant

import (
	"encoding/json"
	"time"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NormalizePublicRead re-establishes allow_public_read ⊆ allowed_collections
// before every write. A superset supplied by the client is trimmed silently,
// never rejected. Unknown collection names are dropped from both lists.
func NormalizePublicRead(t *models.Tenant) {
	t.AllowedCollections = normalizeList(t.AllowedCollections)

	if len(t.AllowPublicRead) == 0 {
		return
	}
	public := decodeList(t.AllowPublicRead)

	if len(t.AllowedCollections) == 0 {
		// Unconfigured allow-list permits everything managed; public read
		// only needs managed-name filtering.
		t.AllowPublicRead = encodeList(public)
		return
	}

	allowed := decodeList(t.AllowedCollections)
	allowedSet := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		allowedSet[c] = true
	}

	trimmed := make([]string, 0, len(public))
	for _, c := range public {
		if allowedSet[c] {
			trimmed = append(trimmed, c)
		}
	}
	t.AllowPublicRead = encodeList(trimmed)
}

func normalizeList(raw datatypes.JSON) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return encodeList(decodeList(raw))
}

func decodeList(raw datatypes.JSON) []string {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return []string{}
	}
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if access.IsManaged(access.Collection(n)) {
			kept = append(kept, n)
		}
	}
	return kept
}

func encodeList(names []string) datatypes.JSON {
	if names == nil {
		names = []string{}
	}
	raw, _ := json.Marshal(names)
	return datatypes.JSON(raw)
}

func CreateTenant(db *gorm.DB, t *models.Tenant) error {
	NormalizePublicRead(t)
	return db.Create(t).Error
}

func SaveTenant(db *gorm.DB, t *models.Tenant) error {
	NormalizePublicRead(t)
	return db.Save(t).Error
}

func SoftDeleteTenant(db *gorm.DB, id uint) error {
	now := time.Now()
	res := db.Model(&models.Tenant{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func RestoreTenant(db *gorm.DB, id uint) error {
	res := db.Model(&models.Tenant{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
