package services

import (
	"github.com/mkravets/staffhub/internal/models"
	"gorm.io/gorm"
)

// Event codes carried in TransitionResult so the caller can compose
// notifications and audit records.
const (
	EventManagerInvited       = "manager_invited"
	EventManagerAccepted      = "manager_accepted"
	EventManagerDeclined      = "manager_declined"
	EventManagerRemoved       = "manager_removed"
	EventManagerReassigned    = "manager_reassigned"
	EventExecutorApplied      = "executor_applied"
	EventApplicationAccepted  = "application_accepted"
	EventApplicationDeclined  = "application_declined"
	EventProjectPublished     = "project_published"
	EventProjectStarted       = "project_started"
	EventProjectArchived      = "project_archived"
	EventOwnershipTransferred = "ownership_transferred"
)

// TransitionResult describes a committed transition. The engine performs no
// notification I/O itself; callers use this to message affected users.
type TransitionResult struct {
	ProjectID        uint                 `json:"project_id"`
	Event            string               `json:"event"`
	ActorID          uint                 `json:"actor_id"`
	OldStatus        models.ProjectStatus `json:"old_status"`
	NewStatus        models.ProjectStatus `json:"new_status"`
	AffectedUserIDs  []uint               `json:"affected_user_ids,omitempty"`
	FallbackAssigned bool                 `json:"fallback_assigned"`
}

// resolveStatus recomputes the status band that matches current assignment
// and staffing facts. It is a pure read; it never walks a transition table,
// so interleaved mutations cannot leave the project on a stale status.
// Owner-promoted in_progress and terminal archived are sticky.
func resolveStatus(tx *gorm.DB, project *models.Project) (models.ProjectStatus, error) {
	switch project.Status {
	case models.StatusArchived, models.StatusInProgress:
		return project.Status, nil
	}

	var accepted int64
	if err := tx.Model(&models.Assignment{}).
		Where("project_id = ? AND status = ?", project.ID, models.AssignmentAccepted).
		Count(&accepted).Error; err != nil {
		return "", err
	}

	if accepted > 0 {
		var executors int64
		if err := tx.Model(&models.ProjectMember{}).
			Where("project_id = ? AND role = ?", project.ID, models.MemberRoleExecutor).
			Count(&executors).Error; err != nil {
			return "", err
		}
		if executors > 0 {
			return models.StatusActive, nil
		}
		return models.StatusSearchingExecutors, nil
	}

	var pending int64
	if err := tx.Model(&models.Assignment{}).
		Where("project_id = ? AND status = ?", project.ID, models.AssignmentPending).
		Count(&pending).Error; err != nil {
		return "", err
	}
	if pending > 0 {
		return models.StatusSearchingManager, nil
	}

	// A published project with no assignments at all only occurs between a
	// decline and the owner fallback inside the same transaction.
	if project.Status.Published() {
		return models.StatusSearchingManager, nil
	}
	return models.StatusDraft, nil
}

// syncProjectStatus re-resolves and persists the project status. Must run
// inside the same transaction as the mutation that may have changed the
// facts, with the project row already locked.
func syncProjectStatus(tx *gorm.DB, project *models.Project) (old, current models.ProjectStatus, err error) {
	old = project.Status
	current, err = resolveStatus(tx, project)
	if err != nil {
		return old, old, err
	}
	if current != old {
		if err := tx.Model(project).Update("status", current).Error; err != nil {
			return old, old, err
		}
		project.Status = current
	}
	return old, current, nil
}
