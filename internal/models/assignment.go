package models

import (
	"time"
)

// AssignmentStatus is the state of a manager invitation.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentDeclined AssignmentStatus = "declined"
)

func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentPending, AssignmentAccepted, AssignmentDeclined:
		return true
	default:
		return false
	}
}

// Assignment is a manager's invitation/acceptance record for a project.
// The unique (project_id, manager_id) key forces re-invites after a decline
// to update the existing row back to pending instead of inserting a new one.
type Assignment struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	ProjectID        uint             `gorm:"uniqueIndex:idx_project_manager;not null" json:"project_id"`
	Project          *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ManagerID        uint             `gorm:"uniqueIndex:idx_project_manager;not null" json:"manager_id"`
	Manager          *User            `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Status           AssignmentStatus `gorm:"size:20;default:pending;index" json:"status"`
	NegotiationOffer string           `gorm:"type:text" json:"negotiation_offer"`
	ChatActive       bool             `gorm:"default:false" json:"chat_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (Assignment) TableName() string { return "assignments" }

// MaxActiveAssignments caps non-declined assignments per project.
const MaxActiveAssignments = 3
