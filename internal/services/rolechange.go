package services

import (
	"errors"
	"fmt"

	"github.com/mkravets/staffhub/internal/models"
	"gorm.io/gorm"
)

// RoleChangeService decides whether a user may switch their global role,
// given every project relationship they currently hold.
type RoleChangeService struct {
	db *gorm.DB
}

func NewRoleChangeService(db *gorm.DB) *RoleChangeService {
	return &RoleChangeService{db: db}
}

// RoleChangeDecision is the gatekeeper verdict. BlockingProjects names the
// projects standing in the way so the caller can enumerate them to the user.
type RoleChangeDecision struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	BlockingProjects []uint `json:"blocking_projects,omitempty"`
}

// Statuses in which an accepted manager assignment pins the user to the
// manager role.
var managerBlockingStatuses = []models.ProjectStatus{
	models.StatusSearchingExecutors,
	models.StatusActive,
	models.StatusInProgress,
}

// CanChangeGlobalRole evaluates the gate without mutating anything. The
// answer is advisory: ChangeGlobalRole re-runs the same evaluation under
// the user row lock before applying anything.
func (s *RoleChangeService) CanChangeGlobalRole(userID uint, targetRole string) (*RoleChangeDecision, error) {
	if !models.IsValidGlobalRole(targetRole) {
		return nil, errInvalidTarget("unknown global role %q", targetRole)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("user %d not found", userID)
		}
		return nil, err
	}
	return evaluateRoleChange(s.db, &user, targetRole)
}

// evaluateRoleChange runs the gate queries against the given handle so the
// decision can be taken both ad hoc (advisory check) and inside the
// transaction that applies it.
func evaluateRoleChange(db *gorm.DB, user *models.User, targetRole string) (*RoleChangeDecision, error) {
	if user.GlobalRole == targetRole {
		return &RoleChangeDecision{Allowed: true}, nil
	}

	var ownedProjects []uint
	if err := db.Model(&models.Project{}).
		Where("owner_id = ?", user.ID).
		Pluck("id", &ownedProjects).Error; err != nil {
		return nil, err
	}

	if targetRole == models.RoleCustomer {
		var participations []uint
		if err := db.Model(&models.ProjectMember{}).
			Where("user_id = ?", user.ID).
			Pluck("project_id", &participations).Error; err != nil {
			return nil, err
		}
		if len(participations) > 0 {
			return &RoleChangeDecision{
				Allowed:          false,
				Reason:           "leave all manager and executor positions first",
				BlockingProjects: participations,
			}, nil
		}
		return &RoleChangeDecision{Allowed: true}, nil
	}

	if len(ownedProjects) > 0 {
		return &RoleChangeDecision{
			Allowed:          false,
			Reason:           "transfer ownership of your projects first",
			BlockingProjects: ownedProjects,
		}, nil
	}

	if targetRole != models.RoleManager {
		var blocking []uint
		if err := db.Model(&models.Assignment{}).
			Joins("JOIN projects ON projects.id = assignments.project_id").
			Where("assignments.manager_id = ? AND assignments.status = ?",
				user.ID, models.AssignmentAccepted).
			Where("projects.status IN ?", managerBlockingStatuses).
			Pluck("assignments.project_id", &blocking).Error; err != nil {
			return nil, err
		}
		if len(blocking) > 0 {
			return &RoleChangeDecision{
				Allowed:          false,
				Reason:           "you manage projects that are being staffed or underway",
				BlockingProjects: blocking,
			}, nil
		}
	}

	return &RoleChangeDecision{Allowed: true}, nil
}

// ChangeGlobalRole applies the role change when the gatekeeper allows it.
// The gate is re-evaluated under the user row lock in the same transaction
// as the update, so a concurrent accept cannot slip in between the decision
// and the write.
func (s *RoleChangeService) ChangeGlobalRole(userID uint, targetRole string) (*models.User, error) {
	if !models.IsValidGlobalRole(targetRole) {
		return nil, errInvalidTarget("unknown global role %q", targetRole)
	}

	var updated *models.User
	err := inTx(s.db, func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		decision, err := evaluateRoleChange(tx, user, targetRole)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return &DomainError{
				Code:             CodePermissionDenied,
				Message:          fmt.Sprintf("role change denied: %s", decision.Reason),
				BlockingProjects: decision.BlockingProjects,
			}
		}

		if err := tx.Model(user).Update("global_role", targetRole).Error; err != nil {
			return err
		}
		user.GlobalRole = targetRole
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetVisibility toggles whether the user is discoverable as a candidate.
func (s *RoleChangeService) SetVisibility(userID uint, visible bool) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("visible", visible)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound("user %d not found", userID)
	}
	return nil
}

type UserListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Role     string `form:"role"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.User `json:"items"`
}

// ListUsers returns all users for the admin panel, optionally filtered by
// global role.
func (s *RoleChangeService) ListUsers(req *UserListRequest) (*UserListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 50
	}

	query := s.db.Model(&models.User{})
	if req.Role != "" {
		if !models.IsValidGlobalRole(req.Role) {
			return nil, errInvalidTarget("unknown global role %q", req.Role)
		}
		query = query.Where("global_role = ?", req.Role)
	}

	var total int64
	query.Count(&total)

	var items []models.User
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &UserListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// SetUserActive enables or disables a user account. Admins cannot disable
// themselves.
func (s *RoleChangeService) SetUserActive(actorID, userID uint, active bool) error {
	if !active && actorID == userID {
		return errInvalidTransition("cannot deactivate your own account")
	}
	result := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound("user %d not found", userID)
	}
	return nil
}

// ListCandidates returns visible, active users with the given global role,
// for manager/executor discovery.
func (s *RoleChangeService) ListCandidates(role string) ([]models.User, error) {
	if role != models.RoleManager && role != models.RoleExecutor {
		return nil, errInvalidTarget("no candidate discovery for role %q", role)
	}
	var users []models.User
	if err := s.db.Where("global_role = ? AND visible = ? AND is_active = ?",
		role, true, true).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
