package main

import (
	"os"

	"github.com/mkravets/staffhub/internal/config"
	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/internal/services"
	"github.com/mkravets/staffhub/internal/utils"
	"github.com/mkravets/staffhub/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// appServices holds the initialized services needed across the application.
type appServices struct {
	cfg             *config.Config
	repairService   *services.RepairService
	repairScheduler *cron.Cron
	taskQueue       services.TaskQueue
	worker          *services.Worker
}

// bootstrap initializes database, services and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitSystemLogger(models.GetDB())

	if err := seedAdmin(models.GetDB()); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed admin user")
	}

	repairService := services.NewRepairService(models.GetDB())

	// Task queue: async via Redis when enabled, inline otherwise.
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(repairService.ProcessRepairTask)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(repairService.ProcessRepairTask)
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start worker")
			}
		}
	}

	var repairScheduler *cron.Cron
	if cfg.Repair.Enabled {
		repairScheduler = services.StartRepairScheduler(models.GetDB(), cfg.Repair.Schedule)
	}

	return &appServices{
		cfg:             cfg,
		repairService:   repairService,
		repairScheduler: repairScheduler,
		taskQueue:       taskQueue,
		worker:          worker,
	}
}

// shutdown gracefully stops schedulers, the worker and the queue.
func (s *appServices) shutdown() {
	if s.repairScheduler != nil {
		s.repairScheduler.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("All background services stopped")
}

// seedAdmin creates the default admin account on first boot.
func seedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		logger.Warn().Msg("ADMIN_PASSWORD not set, using default password for admin account")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:   "admin",
		Password:   hash,
		Nickname:   "Administrator",
		GlobalRole: models.RoleCustomer,
		Visible:    false,
		IsAdmin:    true,
		IsActive:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Infof("Created default admin user (id=%d)", admin.ID)
	return nil
}
