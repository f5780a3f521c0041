package models

import (
	"time"
)

// RoleSlot is a capacity-bounded position category within a project,
// e.g. "Backend" with 2 seats. FilledPositions is derived state: it must
// always equal the count of accepted applications referencing the slot.
type RoleSlot struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProjectID       uint      `gorm:"index;not null" json:"project_id"`
	Project         *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	RoleName        string    `gorm:"size:100;not null" json:"role_name"`
	PositionsCount  int       `gorm:"not null;default:1" json:"positions_count"`
	FilledPositions int       `gorm:"not null;default:0" json:"filled_positions"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (RoleSlot) TableName() string { return "role_slots" }

// OpenPositions returns the number of unfilled seats.
func (s *RoleSlot) OpenPositions() int {
	return s.PositionsCount - s.FilledPositions
}
