package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/mkravets/staffhub/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory database per test. Shared cache keeps
// the database alive across the connection pool within one test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	n := atomic.AddInt64(&testDBSeq, 1)
	dsn := fmt.Sprintf("file:staffhub_test_%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Assignment{},
		&models.ProjectMember{},
		&models.RoleSlot{},
		&models.RoleApplication{},
		&models.RefreshToken{},
		&models.SystemLog{},
		&models.SchedulerLock{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username:   username,
		GlobalRole: role,
		Visible:    true,
		IsActive:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func createProject(t *testing.T, db *gorm.DB, ownerID uint, status models.ProjectStatus) *models.Project {
	t.Helper()
	project := &models.Project{
		Name:    "Test Project",
		OwnerID: ownerID,
		Status:  status,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

func createSlot(t *testing.T, db *gorm.DB, projectID uint, roleName string, positions int) *models.RoleSlot {
	t.Helper()
	slot := &models.RoleSlot{
		ProjectID:      projectID,
		RoleName:       roleName,
		PositionsCount: positions,
	}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("failed to create slot: %v", err)
	}
	return slot
}

func getAssignment(t *testing.T, db *gorm.DB, projectID, managerID uint) *models.Assignment {
	t.Helper()
	var assignment models.Assignment
	if err := db.Where("project_id = ? AND manager_id = ?", projectID, managerID).
		First(&assignment).Error; err != nil {
		t.Fatalf("assignment for manager %d on project %d not found: %v", managerID, projectID, err)
	}
	return &assignment
}

func getProjectStatus(t *testing.T, db *gorm.DB, projectID uint) models.ProjectStatus {
	t.Helper()
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		t.Fatalf("project %d not found: %v", projectID, err)
	}
	return project.Status
}

func countMembers(t *testing.T, db *gorm.DB, projectID uint, role string) int64 {
	t.Helper()
	var count int64
	query := db.Model(&models.ProjectMember{}).Where("project_id = ?", projectID)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Count(&count).Error; err != nil {
		t.Fatalf("failed to count members: %v", err)
	}
	return count
}
