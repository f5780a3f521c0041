package models

import (
	"time"

	"gorm.io/gorm"
)

// Global roles a user can hold on the platform. A customer commissions
// projects, a manager runs them, an executor fills role slots.
const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleExecutor = "executor"
)

func IsValidGlobalRole(role string) bool {
	switch role {
	case RoleCustomer, RoleManager, RoleExecutor:
		return true
	default:
		return false
	}
}

// User represents a platform user.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password   string         `gorm:"size:255" json:"-"` // bcrypt hash
	Email      string         `gorm:"size:255" json:"email"`
	Nickname   string         `gorm:"size:100" json:"nickname"`
	GlobalRole string         `gorm:"size:20;default:customer;index" json:"global_role"`
	Visible    bool           `gorm:"default:true" json:"visible"` // discoverable as manager/executor candidate
	IsAdmin    bool           `gorm:"default:false" json:"is_admin"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	LastLogin  *time.Time     `json:"last_login"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
