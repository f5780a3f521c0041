package models

import (
	"time"
)

// ProjectStatus is derived from assignment and staffing facts, except for
// the owner-promoted and terminal states.
type ProjectStatus string

const (
	StatusDraft              ProjectStatus = "draft"
	StatusSearchingManager   ProjectStatus = "searching_manager"
	StatusSearchingExecutors ProjectStatus = "searching_executors"
	StatusActive             ProjectStatus = "active"
	StatusInProgress         ProjectStatus = "in_progress"
	StatusArchived           ProjectStatus = "archived"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSearchingManager, StatusSearchingExecutors,
		StatusActive, StatusInProgress, StatusArchived:
		return true
	default:
		return false
	}
}

// Published reports whether the project has left draft. A published project
// is subject to the owner-fallback guarantee: it never ends a transaction
// with zero accepted managers after a decline or removal.
func (s ProjectStatus) Published() bool {
	return s != StatusDraft && s != ""
}

// Project is a commissioned piece of work owned by a customer.
type Project struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:200;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Budget      string        `gorm:"size:100" json:"budget"`
	OwnerID     uint          `gorm:"index;not null" json:"owner_id"`
	Owner       *User         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Status      ProjectStatus `gorm:"size:30;default:draft;index" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
