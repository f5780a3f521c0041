package services

import (
	"errors"
	"time"

	"github.com/mkravets/staffhub/internal/models"
	"gorm.io/gorm"
)

// StaffingService manages role slots and executor applications. Capacity is
// enforced under the slot row lock: the losing side of a race for the last
// open seat fails with capacity_exceeded instead of overfilling.
type StaffingService struct {
	db *gorm.DB
}

func NewStaffingService(db *gorm.DB) *StaffingService {
	return &StaffingService{db: db}
}

// CreateSlot adds a capacity-bounded position category to a project.
// Allowed for the owner and for accepted managers.
func (s *StaffingService) CreateSlot(projectID, requesterID uint, roleName string, positions int) (*models.RoleSlot, error) {
	if positions < 1 {
		return nil, errInvalidTransition("positions count must be at least 1")
	}
	var slot *models.RoleSlot
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", projectID)
		}
		if err := requireOwnerOrManager(tx, project, requesterID); err != nil {
			return err
		}
		slot = &models.RoleSlot{
			ProjectID:      projectID,
			RoleName:       roleName,
			PositionsCount: positions,
		}
		return tx.Create(slot).Error
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// UpdateSlot changes a slot's name or seat count. The count can never drop
// below the seats already filled.
func (s *StaffingService) UpdateSlot(slotID, requesterID uint, roleName string, positions int) (*models.RoleSlot, error) {
	var updated *models.RoleSlot
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, slot, err := s.lockSlotWithProject(tx, slotID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", project.ID)
		}
		if err := requireOwnerOrManager(tx, project, requesterID); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if roleName != "" {
			updates["role_name"] = roleName
		}
		if positions > 0 {
			if positions < slot.FilledPositions {
				return errInvalidTransition("cannot reduce positions below %d filled seats", slot.FilledPositions)
			}
			updates["positions_count"] = positions
		}
		if len(updates) == 0 {
			updated = slot
			return nil
		}
		if err := tx.Model(slot).Updates(updates).Error; err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSlot removes an unfilled slot along with its applications.
func (s *StaffingService) DeleteSlot(slotID, requesterID uint) error {
	return inTx(s.db, func(tx *gorm.DB) error {
		project, slot, err := s.lockSlotWithProject(tx, slotID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", project.ID)
		}
		if err := requireOwnerOrManager(tx, project, requesterID); err != nil {
			return err
		}
		if slot.FilledPositions > 0 {
			return errInvalidTransition("slot %d has %d accepted executors", slotID, slot.FilledPositions)
		}
		if err := tx.Where("role_slot_id = ?", slotID).
			Delete(&models.RoleApplication{}).Error; err != nil {
			return err
		}
		return tx.Delete(slot).Error
	})
}

// ListSlots returns all slots of a project.
func (s *StaffingService) ListSlots(projectID uint) ([]models.RoleSlot, error) {
	var slots []models.RoleSlot
	if err := s.db.Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// Apply submits (or, after a decline, re-submits) an executor's application
// to a slot. The unique triple makes a re-apply an update-in-place.
func (s *StaffingService) Apply(projectID, slotID, executorID uint, coverLetter string) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", projectID)
		}
		if !project.Status.Published() {
			return errInvalidTransition("project %d is not open for applications", projectID)
		}
		if err := validateExecutorCandidate(tx, executorID); err != nil {
			return err
		}

		var slot models.RoleSlot
		if err := tx.Where("id = ? AND project_id = ?", slotID, projectID).
			First(&slot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound("role slot %d not found on project %d", slotID, projectID)
			}
			return err
		}

		var existing models.RoleApplication
		err = tx.Where("project_id = ? AND role_slot_id = ? AND executor_id = ?",
			projectID, slotID, executorID).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.Status != models.ApplicationDeclined {
				return errAlreadyApplied("executor %d already applied to slot %d", executorID, slotID)
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"status":       models.ApplicationPending,
				"cover_letter": coverLetter,
				"rejected_at":  nil,
			}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			application := models.RoleApplication{
				ProjectID:   projectID,
				RoleSlotID:  slotID,
				ExecutorID:  executorID,
				Status:      models.ApplicationPending,
				CoverLetter: coverLetter,
			}
			if err := tx.Create(&application).Error; err != nil {
				return err
			}
		default:
			return err
		}

		reviewers, err := projectReviewers(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       projectID,
			Event:           EventExecutorApplied,
			ActorID:         executorID,
			OldStatus:       project.Status,
			NewStatus:       project.Status,
			AffectedUserIDs: reviewers,
		}
		return nil
	})
	return result, err
}

// AcceptApplication fills a seat: the slot row is locked, the capacity
// check re-run, and the application flip, counter increment and executor
// membership commit together or not at all.
func (s *StaffingService) AcceptApplication(applicationID, requesterID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		application, project, err := s.lockApplication(tx, applicationID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", project.ID)
		}
		if err := requireOwnerOrManager(tx, project, requesterID); err != nil {
			return err
		}
		if application.Status != models.ApplicationPending {
			return errInvalidTransition("application is already %s", application.Status)
		}

		slot, err := lockRoleSlot(tx, application.RoleSlotID)
		if err != nil {
			return err
		}
		if slot.FilledPositions >= slot.PositionsCount {
			return errCapacityExceeded("slot %q is full (%d/%d)",
				slot.RoleName, slot.FilledPositions, slot.PositionsCount)
		}

		if err := tx.Model(application).
			Update("status", models.ApplicationAccepted).Error; err != nil {
			return err
		}
		if err := tx.Model(slot).
			Update("filled_positions", slot.FilledPositions+1).Error; err != nil {
			return err
		}
		if err := upsertMembership(tx, project.ID, application.ExecutorID, models.MemberRoleExecutor); err != nil {
			return err
		}

		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       project.ID,
			Event:           EventApplicationAccepted,
			ActorID:         requesterID,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			AffectedUserIDs: []uint{application.ExecutorID},
		}
		return nil
	})
	return result, err
}

// DeclineApplication rejects a pending application. Capacity is untouched
// since only pending applications can be declined; a member row that slipped
// in through historical drift is cleaned up defensively.
func (s *StaffingService) DeclineApplication(applicationID, requesterID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		application, project, err := s.lockApplication(tx, applicationID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", project.ID)
		}
		if err := requireOwnerOrManager(tx, project, requesterID); err != nil {
			return err
		}
		if application.Status != models.ApplicationPending {
			return errInvalidTransition("application is already %s", application.Status)
		}

		now := time.Now()
		if err := tx.Model(application).Updates(map[string]interface{}{
			"status":      models.ApplicationDeclined,
			"rejected_at": now,
		}).Error; err != nil {
			return err
		}

		var acceptedElsewhere int64
		if err := tx.Model(&models.RoleApplication{}).
			Where("project_id = ? AND executor_id = ? AND status = ?",
				project.ID, application.ExecutorID, models.ApplicationAccepted).
			Count(&acceptedElsewhere).Error; err != nil {
			return err
		}
		if acceptedElsewhere == 0 {
			if err := removeMembership(tx, project.ID, application.ExecutorID, models.MemberRoleExecutor); err != nil {
				return err
			}
		}

		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       project.ID,
			Event:           EventApplicationDeclined,
			ActorID:         requesterID,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			AffectedUserIDs: []uint{application.ExecutorID},
		}
		return nil
	})
	return result, err
}

// ListApplications returns a project's applications, optionally filtered by
// slot or status.
func (s *StaffingService) ListApplications(projectID uint, slotID *uint, status models.ApplicationStatus) ([]models.RoleApplication, error) {
	query := s.db.Where("project_id = ?", projectID).
		Preload("Executor").
		Order("created_at DESC")
	if slotID != nil {
		query = query.Where("role_slot_id = ?", *slotID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var applications []models.RoleApplication
	if err := query.Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}

// ListForExecutor returns an executor's applications across projects.
func (s *StaffingService) ListForExecutor(executorID uint) ([]models.RoleApplication, error) {
	var applications []models.RoleApplication
	if err := s.db.Where("executor_id = ?", executorID).
		Preload("Project").
		Preload("RoleSlot").
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}

// lockSlotWithProject locks the project row before the slot row, matching
// the lock order of AcceptApplication.
func (s *StaffingService) lockSlotWithProject(tx *gorm.DB, slotID uint) (*models.Project, *models.RoleSlot, error) {
	var probe models.RoleSlot
	if err := tx.First(&probe, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errNotFound("role slot %d not found", slotID)
		}
		return nil, nil, err
	}
	project, err := lockProject(tx, probe.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	slot, err := lockRoleSlot(tx, slotID)
	if err != nil {
		return nil, nil, err
	}
	return project, slot, nil
}

// lockApplication resolves an application id to its locked project and
// re-reads the application under that lock.
func (s *StaffingService) lockApplication(tx *gorm.DB, applicationID uint) (*models.RoleApplication, *models.Project, error) {
	var probe models.RoleApplication
	if err := tx.First(&probe, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errNotFound("application %d not found", applicationID)
		}
		return nil, nil, err
	}
	project, err := lockProject(tx, probe.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	var application models.RoleApplication
	if err := tx.First(&application, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errNotFound("application %d not found", applicationID)
		}
		return nil, nil, err
	}
	return &application, project, nil
}

// requireOwnerOrManager authorizes slot and application decisions: the
// project owner or any accepted manager.
func requireOwnerOrManager(tx *gorm.DB, project *models.Project, userID uint) error {
	if project.OwnerID == userID {
		return nil
	}
	var accepted int64
	if err := tx.Model(&models.Assignment{}).
		Where("project_id = ? AND manager_id = ? AND status = ?",
			project.ID, userID, models.AssignmentAccepted).
		Count(&accepted).Error; err != nil {
		return err
	}
	if accepted == 0 {
		return errPermissionDenied("user %d is neither owner nor accepted manager of project %d", userID, project.ID)
	}
	return nil
}

// validateExecutorCandidate mirrors the manager-candidate check for
// applicants.
func validateExecutorCandidate(tx *gorm.DB, executorID uint) error {
	var executor models.User
	if err := tx.First(&executor, executorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errInvalidTarget("user %d not found", executorID)
		}
		return err
	}
	if !executor.IsActive || executor.GlobalRole != models.RoleExecutor {
		return errInvalidTarget("user %d is not an active executor", executorID)
	}
	return nil
}

// projectReviewers lists the users who decide on applications: the owner
// plus accepted managers.
func projectReviewers(tx *gorm.DB, project *models.Project) ([]uint, error) {
	reviewers := []uint{project.OwnerID}
	var managerIDs []uint
	if err := tx.Model(&models.Assignment{}).
		Where("project_id = ? AND status = ? AND manager_id != ?",
			project.ID, models.AssignmentAccepted, project.OwnerID).
		Pluck("manager_id", &managerIDs).Error; err != nil {
		return nil, err
	}
	return append(reviewers, managerIDs...), nil
}
