package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrSelfDeletion and ErrLastSuperAdmin are invariant violations, not
	// access denials: they surface as hard failures of the operation.
	ErrSelfDeletion   = errors.New("users cannot delete their own account")
	ErrLastSuperAdmin = errors.New("cannot delete the last remaining super-admin")
)

func CreateUser(db *gorm.DB, u *models.User) (*models.User, error) {
	hash, err := utils.HashPassword(u.Password)
	if err != nil {
		return nil, err
	}
	u.Password = hash
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// AssignTenant gives a user their single tenant membership, replacing any
// existing one. Top-level users cannot also be tenant-scoped.
func AssignTenant(db *gorm.DB, userID, tenantID uint, roles []string) error {
	var u models.User
	if err := db.First(&u, userID).Error; err != nil {
		return err
	}
	if u.Role != "" {
		return fmt.Errorf("user %d holds the top-level role %q and cannot be tenant-scoped", userID, u.Role)
	}
	for _, r := range roles {
		switch r {
		case models.RoleTenantAdmin, models.RoleTenantViewer, models.RoleGuestWriter:
		default:
			return fmt.Errorf("unknown tenant role %q", r)
		}
	}

	raw, err := json.Marshal(roles)
	if err != nil {
		return err
	}

	if err := db.Where("user_id = ?", userID).Delete(&models.TenantMembership{}).Error; err != nil {
		return err
	}
	m := models.TenantMembership{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    datatypes.JSON(raw),
	}
	return db.Create(&m).Error
}

func CountSuperAdmins(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.User{}).
		Where("role = ? AND deleted_at IS NULL", models.RoleSuperAdmin).
		Count(&n).Error
	return n, err
}

// DeleteUser soft-deletes a user after the lifecycle guards. Only
// super-admins delete users; the guards protect the hierarchy's root of
// trust no matter who asks.
func DeleteUser(db *gorm.DB, actor *models.User, targetID uint) error {
	if !access.IsSuperAdmin(actor) {
		return fmt.Errorf("only super-admins can delete users")
	}
	if actor.ID == targetID {
		return ErrSelfDeletion
	}

	var target models.User
	if err := db.Where("id = ? AND deleted_at IS NULL", targetID).First(&target).Error; err != nil {
		return err
	}

	if target.Role == models.RoleSuperAdmin {
		n, err := CountSuperAdmins(db)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastSuperAdmin
		}
	}

	now := time.Now()
	return db.Model(&models.User{}).Where("id = ?", targetID).
		Update("deleted_at", &now).Error
}
