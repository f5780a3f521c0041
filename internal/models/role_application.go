package models

import (
	"time"
)

// ApplicationStatus is the state of an executor's application to a slot.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationDeclined ApplicationStatus = "declined"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationDeclined:
		return true
	default:
		return false
	}
}

// RoleApplication is an executor's request to fill a role slot. Unique on
// (project_id, role_slot_id, executor_id); a declined application may be
// re-submitted, which flips the same row back to pending.
type RoleApplication struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	ProjectID   uint              `gorm:"uniqueIndex:idx_app_project_slot_executor;not null" json:"project_id"`
	Project     *Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	RoleSlotID  uint              `gorm:"uniqueIndex:idx_app_project_slot_executor;not null" json:"role_slot_id"`
	RoleSlot    *RoleSlot         `gorm:"foreignKey:RoleSlotID" json:"role_slot,omitempty"`
	ExecutorID  uint              `gorm:"uniqueIndex:idx_app_project_slot_executor;not null" json:"executor_id"`
	Executor    *User             `gorm:"foreignKey:ExecutorID" json:"executor,omitempty"`
	Status      ApplicationStatus `gorm:"size:20;default:pending;index" json:"status"`
	CoverLetter string            `gorm:"type:text" json:"cover_letter"`
	RejectedAt  *time.Time        `json:"rejected_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (RoleApplication) TableName() string { return "role_applications" }
