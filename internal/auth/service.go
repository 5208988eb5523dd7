package auth

import (
	"encoding/json"
	"fmt"

	"github.com/crestcms/crest/internal/database"
	"github.com/crestcms/crest/internal/models"
	"github.com/crestcms/crest/internal/utils"
	"gorm.io/gorm"
)

// BootstrapUser creates the very first account as a super-admin. Two
// unauthenticated requests can race to be first; the repair step afterwards
// demotes everything but the earliest super-admin, so the race resolves
// after the fact instead of needing a transaction the store layer does not
// guarantee here.
func BootstrapUser(name, email, password string) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Password: hashedPassword,
		Provider: "local",
		Role:     models.RoleSuperAdmin,
	}

	if err := database.DB.Create(&u).Error; err != nil {
		return nil, err
	}

	if err := RepairSuperAdminBootstrap(database.DB); err != nil {
		return nil, err
	}

	// Reload: the repair may have demoted this very account.
	if err := database.DB.First(&u, u.ID).Error; err != nil {
		return nil, err
	}

	return &u, nil
}

// RepairSuperAdminBootstrap resolves the first-user race: if concurrent
// unauthenticated registrations produced more than one super-admin, every
// account but the earliest-created is demoted to no role.
func RepairSuperAdminBootstrap(db *gorm.DB) error {
	var admins []models.User
	err := db.Where("role = ? AND deleted_at IS NULL", models.RoleSuperAdmin).
		Order("created_at asc, id asc").
		Find(&admins).Error
	if err != nil {
		return err
	}
	if len(admins) <= 1 {
		return nil
	}

	var ids []uint
	for _, a := range admins[1:] {
		ids = append(ids, a.ID)
	}
	return db.Model(&models.User{}).Where("id IN ?", ids).
		Update("role", "").Error
}

func LoginUser(email, password string) (*models.User, string, string, error) {
	var u models.User
	err := database.DB.Preload("Tenants").
		Where("email = ? AND deleted_at IS NULL", email).
		First(&u).Error
	if err != nil {
		return nil, "", "", err
	}

	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, "", "", fmt.Errorf("invalid credentials")
	}

	accessToken, err := utils.GenerateJWT(u.ID, PrimaryRole(&u))
	if err != nil {
		return nil, "", "", err
	}

	refreshToken, err := utils.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, "", "", err
	}

	return &u, accessToken, refreshToken, nil
}

// PrimaryRole picks the role tag carried in the token claim: the scalar
// top-level role when set, otherwise the first tenant role.
func PrimaryRole(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Role != "" {
		return u.Role
	}
	for _, m := range u.Tenants {
		var roles []string
		if err := json.Unmarshal(m.Roles, &roles); err == nil && len(roles) > 0 {
			return roles[0]
		}
	}
	return ""
}
