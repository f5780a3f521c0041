package main

import (
	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/handlers"
	"github.com/mkravets/staffhub/internal/middleware"
	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	db := models.GetDB()
	authHandler := handlers.NewAuthHandler(db, svc.cfg)
	projectHandler := handlers.NewProjectHandler(db)
	assignmentHandler := handlers.NewAssignmentHandler(db)
	staffingHandler := handlers.NewStaffingHandler(db)
	userHandler := handlers.NewUserHandler(db)
	systemLogHandler := handlers.NewSystemLogHandler(db)
	repairHandler := handlers.NewRepairHandler(db)
	healthHandler := handlers.NewHealthHandler()

	r.GET("/health", healthHandler.Check)

	// Login and registration are rate limited per client IP.
	authLimiter := middleware.NewRateLimiter(5, 10)

	api := r.Group("/api")
	{
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/logout", authHandler.Logout)

			// Projects
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)
			protected.GET("/projects/:id/detail", projectHandler.GetDetail)
			protected.GET("/projects/:id/status", projectHandler.GetStatus)
			protected.POST("/projects/:id/publish", projectHandler.Publish)
			protected.POST("/projects/:id/start", projectHandler.Start)
			protected.POST("/projects/:id/archive", projectHandler.Archive)
			protected.POST("/projects/:id/transfer", projectHandler.TransferOwnership)

			// Manager assignments
			protected.POST("/projects/:id/assignments", assignmentHandler.Invite)
			protected.GET("/projects/:id/assignments", assignmentHandler.ListByProject)
			protected.DELETE("/projects/:id/assignments/:managerID", assignmentHandler.Remove)
			protected.POST("/projects/:id/assignments/reassign", assignmentHandler.Reassign)
			protected.GET("/assignments", assignmentHandler.ListMine)
			protected.POST("/assignments/:id/accept", assignmentHandler.Accept)
			protected.POST("/assignments/:id/decline", assignmentHandler.Decline)

			// Role slots and executor applications
			protected.POST("/projects/:id/slots", staffingHandler.CreateSlot)
			protected.GET("/projects/:id/slots", staffingHandler.ListSlots)
			protected.PUT("/slots/:id", staffingHandler.UpdateSlot)
			protected.DELETE("/slots/:id", staffingHandler.DeleteSlot)
			protected.POST("/slots/:id/applications", staffingHandler.Apply)
			protected.GET("/projects/:id/applications", staffingHandler.ListApplications)
			protected.GET("/applications", staffingHandler.ListMyApplications)
			protected.POST("/applications/:id/accept", staffingHandler.AcceptApplication)
			protected.POST("/applications/:id/decline", staffingHandler.DeclineApplication)

			// Users
			protected.GET("/users/candidates", userHandler.ListCandidates)
			protected.GET("/users/me/role-change", userHandler.CheckRoleChange)
			protected.POST("/users/me/role-change", userHandler.ChangeRole)
			protected.PUT("/users/me/visibility", userHandler.SetVisibility)

			// Admin
			admin := protected.Group("/admin")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("/logs", systemLogHandler.List)
				admin.GET("/users", userHandler.ListUsers)
				admin.PUT("/users/:id/active", userHandler.SetUserActive)
				admin.POST("/repair", repairHandler.RepairAll)
				admin.POST("/repair/:id", repairHandler.RepairProject)
			}
		}
	}
}
