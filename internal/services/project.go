package services

import (
	"errors"

	"github.com/mkravets/staffhub/internal/models"
	"gorm.io/gorm"
)

// ProjectService covers the owner-driven project lifecycle around the
// engine: creation, publishing, promotion, archival, deletion, transfer.
type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Budget      string `json:"budget"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Budget      string `json:"budget"`
}

type ProjectListRequest struct {
	Page     int                  `form:"page"`
	PageSize int                  `form:"page_size"`
	OwnerID  *uint                `form:"owner_id"`
	Status   models.ProjectStatus `form:"status"`
	Name     string               `form:"name"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

// ProjectDetail bundles a project with its staffing state for read APIs.
type ProjectDetail struct {
	Project     models.Project         `json:"project"`
	Assignments []models.Assignment    `json:"assignments"`
	Members     []models.ProjectMember `json:"members"`
	Slots       []models.RoleSlot      `json:"slots"`
}

// Create opens a new draft project. Only customers commission work.
func (s *ProjectService) Create(ownerID uint, req *CreateProjectRequest) (*models.Project, error) {
	var owner models.User
	if err := s.db.First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("user %d not found", ownerID)
		}
		return nil, err
	}
	if !owner.IsActive || owner.GlobalRole != models.RoleCustomer {
		return nil, errPermissionDenied("only customers can create projects")
	}

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Budget:      req.Budget,
		OwnerID:     ownerID,
		Status:      models.StatusDraft,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update edits the free-form fields of a draft.
func (s *ProjectService) Update(projectID, requesterID uint, req *UpdateProjectRequest) (*models.Project, error) {
	var updated *models.Project
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can edit the project")
		}
		if project.Status != models.StatusDraft {
			return errInvalidTransition("project %d is no longer a draft", projectID)
		}

		updates := map[string]interface{}{}
		if req.Name != "" {
			updates["name"] = req.Name
		}
		if req.Description != "" {
			updates["description"] = req.Description
		}
		if req.Budget != "" {
			updates["budget"] = req.Budget
		}
		if len(updates) > 0 {
			if err := tx.Model(project).Updates(updates).Error; err != nil {
				return err
			}
		}
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Publish starts the executor search without an external manager: the owner
// self-assigns as accepted manager and the project leaves draft.
func (s *ProjectService) Publish(projectID, requesterID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can publish the project")
		}
		if project.Status != models.StatusDraft {
			return errInvalidTransition("project %d is already published", projectID)
		}

		if _, err := ensureAcceptedManager(tx, project); err != nil {
			return err
		}
		oldStatus, newStatus, err := syncProjectStatus(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID: projectID,
			Event:     EventProjectPublished,
			ActorID:   requesterID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		}
		return nil
	})
	return result, err
}

// Start is the explicit owner promotion from active to in_progress.
func (s *ProjectService) Start(projectID, requesterID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can start the project")
		}
		if project.Status != models.StatusActive {
			return errInvalidTransition("project %d is %s, not active", projectID, project.Status)
		}
		if err := tx.Model(project).Update("status", models.StatusInProgress).Error; err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID: projectID,
			Event:     EventProjectStarted,
			ActorID:   requesterID,
			OldStatus: models.StatusActive,
			NewStatus: models.StatusInProgress,
		}
		return nil
	})
	return result, err
}

// Archive moves the project to its terminal state, blocking all further
// assignment and application mutation.
func (s *ProjectService) Archive(projectID, requesterID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can archive the project")
		}
		if project.Status == models.StatusArchived {
			return errInvalidTransition("project %d is already archived", projectID)
		}
		oldStatus := project.Status
		if err := tx.Model(project).Update("status", models.StatusArchived).Error; err != nil {
			return err
		}

		participants, err := projectReviewers(tx, project)
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       projectID,
			Event:           EventProjectArchived,
			ActorID:         requesterID,
			OldStatus:       oldStatus,
			NewStatus:       models.StatusArchived,
			AffectedUserIDs: participants,
		}
		return nil
	})
	return result, err
}

// Delete removes a draft or archived project with all dependent records in
// one transaction.
func (s *ProjectService) Delete(projectID, requesterID uint) error {
	return inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can delete the project")
		}
		if project.Status != models.StatusDraft && project.Status != models.StatusArchived {
			return errInvalidTransition("project %d must be archived before deletion", projectID)
		}

		for _, model := range []interface{}{
			&models.RoleApplication{},
			&models.RoleSlot{},
			&models.ProjectMember{},
			&models.Assignment{},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(project).Error
	})
}

// TransferOwnership hands the project to another customer. Assignments are
// untouched: ownership is membership-independent, and the fallback target
// simply becomes the new owner from here on.
func (s *ProjectService) TransferOwnership(projectID, requesterID, newOwnerID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := inTx(s.db, func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != requesterID {
			return errPermissionDenied("only the project owner can transfer ownership")
		}
		if newOwnerID == requesterID {
			return errInvalidTransition("project %d already belongs to user %d", projectID, newOwnerID)
		}

		var newOwner models.User
		if err := tx.First(&newOwner, newOwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInvalidTarget("user %d not found", newOwnerID)
			}
			return err
		}
		if !newOwner.IsActive || newOwner.GlobalRole != models.RoleCustomer {
			return errInvalidTarget("user %d is not an active customer", newOwnerID)
		}

		if err := tx.Model(project).Update("owner_id", newOwnerID).Error; err != nil {
			return err
		}
		result = &TransitionResult{
			ProjectID:       projectID,
			Event:           EventOwnershipTransferred,
			ActorID:         requesterID,
			OldStatus:       project.Status,
			NewStatus:       project.Status,
			AffectedUserIDs: []uint{newOwnerID},
		}
		return nil
	})
	return result, err
}

// GetByID returns a project by ID.
func (s *ProjectService) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("project %d not found", id)
		}
		return nil, err
	}
	return &project, nil
}

// GetStatus returns the stored project status.
func (s *ProjectService) GetStatus(id uint) (models.ProjectStatus, error) {
	project, err := s.GetByID(id)
	if err != nil {
		return "", err
	}
	return project.Status, nil
}

// GetDetail returns the project with assignments, members and slots.
func (s *ProjectService) GetDetail(id uint) (*ProjectDetail, error) {
	project, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	detail := &ProjectDetail{Project: *project}
	if err := s.db.Where("project_id = ?", id).Preload("Manager").
		Find(&detail.Assignments).Error; err != nil {
		return nil, err
	}
	if err := s.db.Where("project_id = ?", id).Preload("User").
		Find(&detail.Members).Error; err != nil {
		return nil, err
	}
	if err := s.db.Where("project_id = ?", id).
		Find(&detail.Slots).Error; err != nil {
		return nil, err
	}
	return detail, nil
}

// List returns paginated projects.
func (s *ProjectService) List(req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Project{})
	if req.OwnerID != nil {
		query = query.Where("owner_id = ?", *req.OwnerID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}

	var total int64
	query.Count(&total)

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}
