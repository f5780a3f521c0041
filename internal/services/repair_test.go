package services

import (
	"context"
	"testing"

	"github.com/mkravets/staffhub/internal/models"
)

func TestRepair_CleanProjectUntouched(t *testing.T) {
	db := newTestDB(t)
	_, _, executor, project := setupStaffedProject(t, db)
	slot := createSlot(t, db, project.ID, "Backend", 2)

	staffing := NewStaffingService(db)
	if _, err := staffing.Apply(project.ID, slot.ID, executor.ID, ""); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	var application models.RoleApplication
	db.Where("role_slot_id = ?", slot.ID).First(&application)
	if _, err := staffing.AcceptApplication(application.ID, project.OwnerID); err != nil {
		t.Fatalf("AcceptApplication failed: %v", err)
	}

	svc := NewRepairService(db)
	report, err := svc.RepairProject(project.ID)
	if err != nil {
		t.Fatalf("RepairProject failed: %v", err)
	}
	if report.Total() != 0 {
		t.Errorf("clean project produced %d corrections: %+v", report.Total(), report)
	}
}

func TestRepair_CorrectsSlotCounter(t *testing.T) {
	db := newTestDB(t)
	_, _, executor, project := setupStaffedProject(t, db)
	slot := createSlot(t, db, project.ID, "Backend", 2)

	staffing := NewStaffingService(db)
	if _, err := staffing.Apply(project.ID, slot.ID, executor.ID, ""); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	var application models.RoleApplication
	db.Where("role_slot_id = ?", slot.ID).First(&application)
	if _, err := staffing.AcceptApplication(application.ID, project.OwnerID); err != nil {
		t.Fatalf("AcceptApplication failed: %v", err)
	}

	// Simulate drift: the counter disagrees with the accepted applications.
	db.Model(&models.RoleSlot{}).Where("id = ?", slot.ID).Update("filled_positions", 5)

	svc := NewRepairService(db)
	report, err := svc.RepairProject(project.ID)
	if err != nil {
		t.Fatalf("RepairProject failed: %v", err)
	}
	if report.SlotsCorrected != 1 {
		t.Errorf("slots corrected = %d, expected 1", report.SlotsCorrected)
	}

	var repaired models.RoleSlot
	db.First(&repaired, slot.ID)
	if repaired.FilledPositions != 1 {
		t.Errorf("filled positions = %d, expected 1", repaired.FilledPositions)
	}

	// Idempotence: a second pass finds nothing.
	again, err := svc.RepairProject(project.ID)
	if err != nil {
		t.Fatalf("second RepairProject failed: %v", err)
	}
	if again.Total() != 0 {
		t.Errorf("second pass produced %d corrections", again.Total())
	}
}

func TestRepair_ReconcilesMemberships(t *testing.T) {
	db := newTestDB(t)
	_, manager, _, project := setupStaffedProject(t, db)
	outsider := createUser(t, db, "outsider", models.RoleExecutor)

	// Drift: the accepted manager's member row is gone, an outsider has a
	// row with no accepted record, and the manager would get the wrong role.
	db.Where("project_id = ? AND user_id = ?", project.ID, manager.ID).
		Delete(&models.ProjectMember{})
	db.Create(&models.ProjectMember{
		ProjectID: project.ID,
		UserID:    outsider.ID,
		Role:      models.MemberRoleExecutor,
	})

	svc := NewRepairService(db)
	report, err := svc.RepairProject(project.ID)
	if err != nil {
		t.Fatalf("RepairProject failed: %v", err)
	}
	if report.MembershipsAdded != 1 {
		t.Errorf("memberships added = %d, expected 1", report.MembershipsAdded)
	}
	if report.MembershipsRemoved != 1 {
		t.Errorf("memberships removed = %d, expected 1", report.MembershipsRemoved)
	}

	var member models.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", project.ID, manager.ID).
		First(&member).Error; err != nil {
		t.Fatalf("manager member row not restored: %v", err)
	}
	if member.Role != models.MemberRoleManager {
		t.Errorf("restored role = %q, expected manager", member.Role)
	}

	var orphans int64
	db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", project.ID, outsider.ID).
		Count(&orphans)
	if orphans != 0 {
		t.Error("orphan member row should be removed")
	}
}

func TestRepair_ManagerRoleWinsOverExecutor(t *testing.T) {
	db := newTestDB(t)
	_, manager, _, project := setupStaffedProject(t, db)

	// Drift: the manager's mirror row carries the executor role.
	db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", project.ID, manager.ID).
		Update("role", models.MemberRoleExecutor)

	svc := NewRepairService(db)
	report, err := svc.RepairProject(project.ID)
	if err != nil {
		t.Fatalf("RepairProject failed: %v", err)
	}
	if report.MembershipsUpdated != 1 {
		t.Errorf("memberships updated = %d, expected 1", report.MembershipsUpdated)
	}

	var member models.ProjectMember
	db.Where("project_id = ? AND user_id = ?", project.ID, manager.ID).First(&member)
	if member.Role != models.MemberRoleManager {
		t.Errorf("role = %q, expected manager", member.Role)
	}
}

func TestRepairAll_CoversEveryProject(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleCustomer)
	first := createProject(t, db, owner.ID, models.StatusDraft)
	second := createProject(t, db, owner.ID, models.StatusDraft)
	slotA := createSlot(t, db, first.ID, "Backend", 1)
	slotB := createSlot(t, db, second.ID, "Backend", 1)

	// Both counters drift with no accepted applications at all.
	db.Model(&models.RoleSlot{}).Where("id IN ?", []uint{slotA.ID, slotB.ID}).
		Update("filled_positions", 3)

	svc := NewRepairService(db)
	report, err := svc.RepairAll()
	if err != nil {
		t.Fatalf("RepairAll failed: %v", err)
	}
	if report.ProjectsScanned != 2 {
		t.Errorf("projects scanned = %d, expected 2", report.ProjectsScanned)
	}
	if report.SlotsCorrected != 2 {
		t.Errorf("slots corrected = %d, expected 2", report.SlotsCorrected)
	}
}

func TestRepairTask_RoutesByProjectID(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleCustomer)
	project := createProject(t, db, owner.ID, models.StatusDraft)
	slot := createSlot(t, db, project.ID, "Backend", 1)
	db.Model(&models.RoleSlot{}).Where("id = ?", slot.ID).Update("filled_positions", 9)

	svc := NewRepairService(db)
	if err := svc.ProcessRepairTask(context.Background(), &RepairTask{ProjectID: project.ID}); err != nil {
		t.Fatalf("ProcessRepairTask failed: %v", err)
	}

	var repaired models.RoleSlot
	db.First(&repaired, slot.ID)
	if repaired.FilledPositions != 0 {
		t.Errorf("filled positions = %d, expected 0", repaired.FilledPositions)
	}
}
