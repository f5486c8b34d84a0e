package models

import (
	"time"

	"gorm.io/gorm"
)

// Role gates which panels and routes a user can reach
type Role string

const (
	RoleMaintenance Role = "MAINTENANCE"
	RoleWarehouse   Role = "WAREHOUSE"
	RolePurchasing  Role = "PURCHASING"
	RoleITAdmin     Role = "IT_ADMIN"
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleUser        Role = "USER"
	RoleGatehouse   Role = "GATEHOUSE"
)

// AllRoles lists every valid role
var AllRoles = []Role{
	RoleMaintenance,
	RoleWarehouse,
	RolePurchasing,
	RoleITAdmin,
	RoleSuperAdmin,
	RoleUser,
	RoleGatehouse,
}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an intranet account
type User struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Username        string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	Name            string    `gorm:"not null" json:"name"`
	Role            Role      `gorm:"size:20;not null;default:'USER'" json:"role"`
	HasPortalAccess bool      `gorm:"not null;default:false" json:"has_portal_access"`
	Extension       *string   `gorm:"size:20" json:"extension"`
	SectorID        *string   `gorm:"size:36" json:"sector_id"`
	ProfileImageKey *string   `json:"profile_image_key"`
	ProfileImageURL *string   `gorm:"-" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsSuperAdmin reports whether the user bypasses every role gate
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}
