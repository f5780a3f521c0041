package services

import (
	"errors"

	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/pkg/logger"
	"gorm.io/gorm"
)

// AssignmentService manages the manager invitation lifecycle: invite,
// accept, decline, owner-initiated removal and atomic reassignment. Every
// operation is one transaction serialized on the project row.
type AssignmentService struct {
	db *gorm.DB
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db}
}

// Invite creates (or, after a prior decline, revives) a pending assignment
// for a manager candidate. Only the project owner may invite.
func (s *AssignmentService) Invite(projectID, candidateID, requesterID uint, offer string) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", projectID)
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can invite managers")
		}
		if err := inviteUnderLock(tx, project, candidateID, offer); err != nil {
			return err
		}

		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       projectID,
			Event:           EventManagerInvited,
			ActorID:         requesterID,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			AffectedUserIDs: []uint{candidateID},
		}
		return nil
	})
	return result, err
}

// Accept marks a pending assignment accepted and materializes the manager
// membership in the same transaction.
func (s *AssignmentService) Accept(assignmentID, actorID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		assignment, project, err := s.lockAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.ManagerID != actorID {
			return errNotFound("assignment %d not found", assignmentID)
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", project.ID)
		}
		if assignment.Status != models.AssignmentPending {
			return errInvalidTransition("assignment is already %s", assignment.Status)
		}

		if err := tx.Model(assignment).Updates(map[string]interface{}{
			"status":      models.AssignmentAccepted,
			"chat_active": true,
		}).Error; err != nil {
			return err
		}
		if err := upsertMembership(tx, project.ID, actorID, models.MemberRoleManager); err != nil {
			return err
		}

		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       project.ID,
			Event:           EventManagerAccepted,
			ActorID:         actorID,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			AffectedUserIDs: []uint{project.OwnerID},
		}
		return nil
	})
	return result, err
}

// Decline terminates the actor's own assignment. A pending decline simply
// refuses the invitation; an accepted manager's decline also removes the
// membership and may trigger the owner fallback.
func (s *AssignmentService) Decline(assignmentID, actorID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		assignment, project, err := s.lockAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if assignment.ManagerID != actorID {
			return errNotFound("assignment %d not found", assignmentID)
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", project.ID)
		}
		if assignment.Status == models.AssignmentDeclined {
			return errInvalidTransition("assignment is already declined")
		}

		fallback, err := finishAssignment(tx, project, assignment)
		if err != nil {
			return err
		}
		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:        project.ID,
			Event:            EventManagerDeclined,
			ActorID:          actorID,
			OldStatus:        oldStatus,
			NewStatus:        newStatus,
			AffectedUserIDs:  []uint{project.OwnerID},
			FallbackAssigned: fallback,
		}
		return nil
	})
	return result, err
}

// Remove is the owner-initiated counterpart of Decline: it unassigns a
// manager and runs the same fallback check in the same transaction.
func (s *AssignmentService) Remove(projectID, managerID, requesterID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", projectID)
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can remove managers")
		}

		fallback, err := s.removeUnderLock(tx, project, managerID)
		if err != nil {
			return err
		}
		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:        projectID,
			Event:            EventManagerRemoved,
			ActorID:          requesterID,
			OldStatus:        oldStatus,
			NewStatus:        newStatus,
			AffectedUserIDs:  []uint{managerID},
			FallbackAssigned: fallback,
		}
		return nil
	})
	return result, err
}

// Reassign composes Remove(old) and Invite(new) in a single transaction so
// no intermediate state is ever visible. The owner fallback still applies:
// the new manager is only pending, so the owner covers the gap.
func (s *AssignmentService) Reassign(projectID, oldManagerID, newManagerID, requesterID uint, offer string) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is archived", projectID)
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can reassign managers")
		}
		if oldManagerID == newManagerID {
			return errInvalidTransition("old and new manager are the same user")
		}

		fallback, err := s.removeUnderLock(tx, project, oldManagerID)
		if err != nil {
			return err
		}
		if err := inviteUnderLock(tx, project, newManagerID, offer); err != nil {
			return err
		}

		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:        projectID,
			Event:            EventManagerReassigned,
			ActorID:          requesterID,
			OldStatus:        oldStatus,
			NewStatus:        newStatus,
			AffectedUserIDs:  []uint{oldManagerID, newManagerID},
			FallbackAssigned: fallback,
		}
		return nil
	})
	return result, err
}

// ListByProject returns all assignments of a project, newest first.
func (s *AssignmentService) ListByProject(projectID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := s.db.Where("project_id = ?", projectID).
		Preload("Manager").
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListForManager returns a manager's assignments across projects.
func (s *AssignmentService) ListForManager(managerID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := s.db.Where("manager_id = ?", managerID).
		Preload("Project").
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// lockAssignment resolves an assignment id to its locked project and
// re-reads the assignment under that lock, so preconditions are always
// checked against committed state.
func (s *AssignmentService) lockAssignment(tx *gorm.DB, assignmentID uint) (*models.Assignment, *models.Project, error) {
	var probe models.Assignment
	if err := tx.First(&probe, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errNotFound("assignment %d not found", assignmentID)
		}
		return nil, nil, err
	}
	project, err := lockProject(tx, probe.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	var assignment models.Assignment
	if err := tx.First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errNotFound("assignment %d not found", assignmentID)
		}
		return nil, nil, err
	}
	return &assignment, project, nil
}

// inviteUnderLock performs the invite effects with the project row already
// locked: candidate validation, the non-declined cap, and the create-or-
// revive write against the unique (project, manager) key. A declined row is
// flipped back to pending rather than duplicated.
func inviteUnderLock(tx *gorm.DB, project *models.Project, candidateID uint, offer string) error {
	if err := validateManagerCandidate(tx, candidateID); err != nil {
		return err
	}

	var existing models.Assignment
	err := tx.Where("project_id = ? AND manager_id = ?", project.ID, candidateID).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.Status != models.AssignmentDeclined {
			return errAlreadyExists("manager %d is already invited or assigned", candidateID)
		}
		// The declined row stopped counting against the cap, so re-check
		// before reviving it.
		if err := checkAssignmentCap(tx, project.ID, 1); err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"status":            models.AssignmentPending,
			"negotiation_offer": offer,
			"chat_active":       false,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := checkAssignmentCap(tx, project.ID, 1); err != nil {
			return err
		}
		assignment := models.Assignment{
			ProjectID:        project.ID,
			ManagerID:        candidateID,
			Status:           models.AssignmentPending,
			NegotiationOffer: offer,
		}
		return tx.Create(&assignment).Error
	default:
		return err
	}
}

// removeUnderLock performs the removal effects for a manager with the
// project row already locked, returning whether the owner fallback fired.
func (s *AssignmentService) removeUnderLock(tx *gorm.DB, project *models.Project, managerID uint) (bool, error) {
	var assignment models.Assignment
	if err := tx.Where("project_id = ? AND manager_id = ?", project.ID, managerID).
		First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, errNotFound("manager %d has no assignment on project %d", managerID, project.ID)
		}
		return false, err
	}
	if assignment.Status == models.AssignmentDeclined {
		return false, errInvalidTransition("assignment is already declined")
	}
	if managerID == project.OwnerID {
		var others int64
		if err := tx.Model(&models.Assignment{}).
			Where("project_id = ? AND status = ? AND manager_id != ?",
				project.ID, models.AssignmentAccepted, managerID).
			Count(&others).Error; err != nil {
			return false, err
		}
		if others == 0 {
			return false, errInvalidTransition("the owner is the fallback manager and cannot be removed")
		}
	}
	return finishAssignment(tx, project, &assignment)
}

// finishAssignment unifies decline and removal at the effect level: the
// record goes terminal, the membership mirror is cleaned up, and the owner
// fallback keeps at least one accepted manager on any published project
// that is still running. Archived projects never regain a manager.
func finishAssignment(tx *gorm.DB, project *models.Project, assignment *models.Assignment) (bool, error) {
	wasAccepted := assignment.Status == models.AssignmentAccepted

	if err := tx.Model(assignment).Updates(map[string]interface{}{
		"status":      models.AssignmentDeclined,
		"chat_active": false,
	}).Error; err != nil {
		return false, err
	}
	if wasAccepted {
		if err := removeMembership(tx, project.ID, assignment.ManagerID, models.MemberRoleManager); err != nil {
			return false, err
		}
	}
	if !project.Status.Published() || project.Status == models.StatusArchived {
		return false, nil
	}
	return ensureAcceptedManager(tx, project)
}

// ensureAcceptedManager is the I2 mechanism: when a published project is
// left without an accepted manager, the owner is promoted in place, inside
// the transaction that created the gap.
func ensureAcceptedManager(tx *gorm.DB, project *models.Project) (bool, error) {
	var accepted int64
	if err := tx.Model(&models.Assignment{}).
		Where("project_id = ? AND status = ?", project.ID, models.AssignmentAccepted).
		Count(&accepted).Error; err != nil {
		return false, err
	}
	if accepted > 0 {
		return false, nil
	}

	var ownerAssignment models.Assignment
	err := tx.Where("project_id = ? AND manager_id = ?", project.ID, project.OwnerID).
		First(&ownerAssignment).Error
	switch {
	case err == nil:
		if err := tx.Model(&ownerAssignment).Updates(map[string]interface{}{
			"status":      models.AssignmentAccepted,
			"chat_active": false,
		}).Error; err != nil {
			return false, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		ownerAssignment = models.Assignment{
			ProjectID: project.ID,
			ManagerID: project.OwnerID,
			Status:    models.AssignmentAccepted,
		}
		if err := tx.Create(&ownerAssignment).Error; err != nil {
			return false, err
		}
	default:
		return false, err
	}

	if err := upsertMembership(tx, project.ID, project.OwnerID, models.MemberRoleManager); err != nil {
		return false, err
	}
	logger.Info().
		Uint("project_id", project.ID).
		Uint("owner_id", project.OwnerID).
		Msg("owner promoted to accepted manager (fallback)")
	return true, nil
}

// validateManagerCandidate checks the invite target: an active, visible
// user with the manager global role.
func validateManagerCandidate(tx *gorm.DB, candidateID uint) error {
	var candidate models.User
	if err := tx.First(&candidate, candidateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errInvalidTarget("user %d not found", candidateID)
		}
		return err
	}
	if !candidate.IsActive || candidate.GlobalRole != models.RoleManager || !candidate.Visible {
		return errInvalidTarget("user %d is not a visible manager", candidateID)
	}
	return nil
}

// checkAssignmentCap enforces the non-declined assignment cap, counting the
// rows the pending mutation is about to add.
func checkAssignmentCap(tx *gorm.DB, projectID uint, adding int64) error {
	var active int64
	if err := tx.Model(&models.Assignment{}).
		Where("project_id = ? AND status != ?", projectID, models.AssignmentDeclined).
		Count(&active).Error; err != nil {
		return err
	}
	if active+adding > models.MaxActiveAssignments {
		return errCapacityExceeded("project %d already has %d active manager assignments", projectID, active)
	}
	return nil
}

// upsertMembership materializes a member row inside the current
// transaction. An existing row keeps its role: a user who is already a
// manager does not get demoted by also being accepted as an executor.
func upsertMembership(tx *gorm.DB, projectID, userID uint, role string) error {
	var member models.ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		member = models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
		return tx.Create(&member).Error
	default:
		return err
	}
}

// removeMembership deletes the member row if it holds the given role.
func removeMembership(tx *gorm.DB, projectID, userID uint, role string) error {
	return tx.Where("project_id = ? AND user_id = ? AND role = ?", projectID, userID, role).
		Delete(&models.ProjectMember{}).Error
}
