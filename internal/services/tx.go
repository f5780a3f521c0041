package services

import (
	"strings"
	"time"

	"github.com/mkravets/staffhub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const txMaxRetries = 3

// inTx runs fn inside a transaction, retrying on lock contention. Every
// public engine operation goes through here so that all derived effects
// (memberships, counters, project status) commit or roll back together.
// After exhausting retries the caller gets a concurrency_conflict error.
func inTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < txMaxRetries; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !isLockConflict(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return &DomainError{
		Code:    CodeConcurrencyConflict,
		Message: "operation conflicted with a concurrent update, please retry: " + err.Error(),
	}
}

// isLockConflict matches driver-specific lock/serialization failures that
// are safe to retry on a fresh transaction.
func isLockConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// lockProject reads the project row FOR UPDATE. The project row is the
// serialization point for its assignment set: concurrent invite/accept/
// decline/remove calls on the same project queue up here, so preconditions
// are always evaluated against committed state.
func lockProject(tx *gorm.DB, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errNotFound("project %d not found", projectID)
		}
		return nil, err
	}
	return &project, nil
}

// lockUser reads the user row FOR UPDATE, serializing role changes for the
// same account.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errNotFound("user %d not found", userID)
		}
		return nil, err
	}
	return &user, nil
}

// lockRoleSlot reads the slot row FOR UPDATE, serializing capacity checks
// so two accepts cannot both claim the last open seat.
func lockRoleSlot(tx *gorm.DB, slotID uint) (*models.RoleSlot, error) {
	var slot models.RoleSlot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, slotID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errNotFound("role slot %d not found", slotID)
		}
		return nil, err
	}
	return &slot, nil
}
