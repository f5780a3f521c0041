package models

import (
	"time"
)

// Member roles within a single project.
const (
	MemberRoleManager  = "manager"
	MemberRoleExecutor = "executor"
)

// ProjectMember is the materialized view of a user's accepted role within a
// project. It mirrors accepted assignments (manager) and accepted role
// applications (executor); it is written only inside the same transaction as
// the authoritative record and reconciled by the repair pass.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_member_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_member_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:20;not null" json:"role"` // manager, executor
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }
