package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RepairService recomputes derived state from the authoritative records:
// slot fill counters from accepted applications, and the membership mirror
// from accepted assignments and applications. It never invents assignment
// or application state. Idempotent: a clean second pass corrects nothing.
type RepairService struct {
	db *gorm.DB
}

func NewRepairService(db *gorm.DB) *RepairService {
	return &RepairService{db: db}
}

// RepairReport counts the corrections a pass made.
type RepairReport struct {
	ProjectsScanned    int `json:"projects_scanned"`
	SlotsCorrected     int `json:"slots_corrected"`
	MembershipsAdded   int `json:"memberships_added"`
	MembershipsRemoved int `json:"memberships_removed"`
	MembershipsUpdated int `json:"memberships_updated"`
}

func (r *RepairReport) Total() int {
	return r.SlotsCorrected + r.MembershipsAdded + r.MembershipsRemoved + r.MembershipsUpdated
}

func (r *RepairReport) merge(other *RepairReport) {
	r.ProjectsScanned += other.ProjectsScanned
	r.SlotsCorrected += other.SlotsCorrected
	r.MembershipsAdded += other.MembershipsAdded
	r.MembershipsRemoved += other.MembershipsRemoved
	r.MembershipsUpdated += other.MembershipsUpdated
}

// RepairProject repairs one project. Corrections run row-by-row in short
// transactions so the pass never holds long locks.
func (s *RepairService) RepairProject(projectID uint) (*RepairReport, error) {
	report := &RepairReport{ProjectsScanned: 1}

	if err := s.repairSlots(projectID, report); err != nil {
		return report, err
	}
	if err := s.repairMemberships(projectID, report); err != nil {
		return report, err
	}

	if report.Total() > 0 {
		logger.Warn().
			Uint("project_id", projectID).
			Int("slots_corrected", report.SlotsCorrected).
			Int("memberships_added", report.MembershipsAdded).
			Int("memberships_removed", report.MembershipsRemoved).
			Int("memberships_updated", report.MembershipsUpdated).
			Msg("consistency drift corrected")
		LogWarning("repair", "drift_corrected",
			fmt.Sprintf("project %d: %d corrections", projectID, report.Total()),
			nil, "", "", report)
	}
	return report, nil
}

// RepairAll repairs every project.
func (s *RepairService) RepairAll() (*RepairReport, error) {
	var projectIDs []uint
	if err := s.db.Model(&models.Project{}).Pluck("id", &projectIDs).Error; err != nil {
		return nil, err
	}

	total := &RepairReport{}
	for _, id := range projectIDs {
		report, err := s.RepairProject(id)
		if err != nil {
			return total, err
		}
		total.merge(report)
	}
	return total, nil
}

// ProcessRepairTask executes a queued repair task. ProjectID zero means a
// full sweep.
func (s *RepairService) ProcessRepairTask(ctx context.Context, task *RepairTask) error {
	if task.ProjectID > 0 {
		_, err := s.RepairProject(task.ProjectID)
		return err
	}
	report, err := s.RepairAll()
	if err != nil {
		return err
	}
	logger.Infof("repair sweep done: %d projects scanned, %d corrections", report.ProjectsScanned, report.Total())
	return nil
}

// repairSlots resets each slot's filled counter to the accepted-application
// count, the authoritative source.
func (s *RepairService) repairSlots(projectID uint, report *RepairReport) error {
	var slots []models.RoleSlot
	if err := s.db.Where("project_id = ?", projectID).Find(&slots).Error; err != nil {
		return err
	}

	for i := range slots {
		slot := &slots[i]
		err := inTx(s.db, func(tx *gorm.DB) error {
			locked, err := lockRoleSlot(tx, slot.ID)
			if err != nil {
				if IsCode(err, CodeNotFound) {
					return nil // deleted since the scan
				}
				return err
			}
			var accepted int64
			if err := tx.Model(&models.RoleApplication{}).
				Where("role_slot_id = ? AND status = ?", locked.ID, models.ApplicationAccepted).
				Count(&accepted).Error; err != nil {
				return err
			}
			if locked.FilledPositions == int(accepted) {
				return nil
			}
			report.SlotsCorrected++
			return tx.Model(locked).Update("filled_positions", int(accepted)).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// repairMemberships reconciles the member mirror against accepted
// assignments (manager) and accepted applications (executor). A user with
// both keeps the manager role.
func (s *RepairService) repairMemberships(projectID uint, report *RepairReport) error {
	return inTx(s.db, func(tx *gorm.DB) error {
		if _, err := lockProject(tx, projectID); err != nil {
			if IsCode(err, CodeNotFound) {
				return nil
			}
			return err
		}

		expected := map[uint]string{}
		var managerIDs []uint
		if err := tx.Model(&models.Assignment{}).
			Where("project_id = ? AND status = ?", projectID, models.AssignmentAccepted).
			Pluck("manager_id", &managerIDs).Error; err != nil {
			return err
		}
		var executorIDs []uint
		if err := tx.Model(&models.RoleApplication{}).
			Distinct("executor_id").
			Where("project_id = ? AND status = ?", projectID, models.ApplicationAccepted).
			Pluck("executor_id", &executorIDs).Error; err != nil {
			return err
		}
		for _, id := range executorIDs {
			expected[id] = models.MemberRoleExecutor
		}
		for _, id := range managerIDs {
			expected[id] = models.MemberRoleManager
		}

		var members []models.ProjectMember
		if err := tx.Where("project_id = ?", projectID).Find(&members).Error; err != nil {
			return err
		}

		seen := map[uint]bool{}
		for i := range members {
			member := &members[i]
			seen[member.UserID] = true
			want, ok := expected[member.UserID]
			switch {
			case !ok:
				if err := tx.Delete(member).Error; err != nil {
					return err
				}
				report.MembershipsRemoved++
			case member.Role != want:
				if err := tx.Model(member).Update("role", want).Error; err != nil {
					return err
				}
				report.MembershipsUpdated++
			}
		}

		for userID, role := range expected {
			if seen[userID] {
				continue
			}
			member := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			report.MembershipsAdded++
		}
		return nil
	})
}

// --- Scheduled repair ---

const repairLockName = "consistency_repair"

// StartRepairScheduler runs RepairAll on the configured cron schedule. A
// DB-backed lock keeps the pass on a single instance per run window.
func StartRepairScheduler(db *gorm.DB, schedule string) *cron.Cron {
	service := NewRepairService(db)
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		lockKey := time.Now().UTC().Format("2006-01-02T15:04")
		acquired, err := acquireSchedulerLock(db, repairLockName, lockKey, 10*time.Minute)
		if err != nil {
			logger.Error().Err(err).Msg("repair scheduler: lock acquisition failed")
			return
		}
		if !acquired {
			logger.Debug().Str("lock_key", lockKey).Msg("repair scheduler: another instance holds the lock")
			return
		}

		report, err := service.RepairAll()
		if err != nil {
			logger.Error().Err(err).Msg("scheduled repair failed")
			return
		}
		logger.Info().
			Int("projects", report.ProjectsScanned).
			Int("corrections", report.Total()).
			Msg("scheduled repair completed")
	})
	if err != nil {
		logger.Fatalf("invalid repair schedule %q: %v", schedule, err)
	}

	c.Start()
	logger.Infof("repair scheduler started (schedule: %s)", schedule)
	return c
}

// acquireSchedulerLock claims the (name, key) lock row. The unique index
// makes the insert the arbiter between instances; expired rows are stolen.
func acquireSchedulerLock(db *gorm.DB, name, key string, ttl time.Duration) (bool, error) {
	hostname, _ := os.Hostname()
	now := time.Now()

	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  hostname,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(&lock).Error; err == nil {
		return true, nil
	}

	// Row exists: steal it only if the previous holder's TTL elapsed.
	result := db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  hostname,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
