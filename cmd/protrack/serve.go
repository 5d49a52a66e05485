package main

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/internal/handler"
	"github.com/triumph135/protrack-sub000/internal/middleware"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/config"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/jwtutil"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration from .env file and environment variables
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Initialize logger with config
			logger.InitLogger(cfg)
			log := logger.GetLogger()
			log.Info("Starting protrack service...", zap.String("environment", cfg.Server.Env))

			// Initialize database
			if err := database.InitDB(cfg); err != nil {
				log.Error("Failed to initialize database", zap.Error(err))
				return err
			}
			log.Info("Database connection established")

			// Initialize JWT utility and handler configuration
			jwtutil.Initialize(&cfg.JWT)
			handler.Initialize(cfg)

			// Initialize Prometheus metrics
			prometheus.InitMetrics(cfg)
			log.Info("Prometheus metrics initialized")

			e := newRouter(log)

			port := cfg.Server.Port
			log.Info("Starting server", zap.String("port", port))
			if err := e.Start(":" + port); err != nil {
				log.Error("Server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

// newRouter builds the echo instance with global middleware and every route
func newRouter(log *zap.Logger) *echo.Echo {
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)

	// Invitation consumption is public - the invitee has no account yet
	e.GET("/invitations/lookup", handler.LookupInvitation)
	e.POST("/invitations/accept", handler.AcceptInvitation)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Profile management - self service, no area permission needed
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.PATCH("/profile", handler.UpdateProfile)
	users.POST("/change-password", handler.ChangePassword)

	// User administration
	users.GET("", handler.ListUsers, middleware.RequirePermission(model.AreaUsers, model.PermissionRead))
	users.POST("", handler.CreateUser, middleware.RequirePermission(model.AreaUsers, model.PermissionWrite))
	users.PUT("/:id", handler.UpdateUser, middleware.RequirePermission(model.AreaUsers, model.PermissionWrite))
	users.DELETE("/:id", handler.DeactivateUser, middleware.RequirePermission(model.AreaUsers, model.PermissionWrite))

	// Projects and everything nested under them
	projects := api.Group("/projects")
	projects.GET("", handler.ListProjects, middleware.RequirePermission(model.AreaProjects, model.PermissionRead))
	projects.POST("", handler.CreateProject, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))
	projects.GET("/:id", handler.GetProject, middleware.RequirePermission(model.AreaProjects, model.PermissionRead))
	projects.PUT("/:id", handler.UpdateProject, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))
	projects.DELETE("/:id", handler.DeleteProject, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))

	projects.GET("/:id/change-orders", handler.ListChangeOrders, middleware.RequirePermission(model.AreaProjects, model.PermissionRead))
	projects.POST("/:id/change-orders", handler.CreateChangeOrder, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))

	// Cost routes resolve the category's area inside the handler
	projects.GET("/:id/costs/:category", handler.ListCosts)
	projects.POST("/:id/costs/:category", handler.CreateCost)

	projects.GET("/:id/invoices", handler.ListInvoices, middleware.RequirePermission(model.AreaInvoices, model.PermissionRead))
	projects.POST("/:id/invoices", handler.CreateInvoice, middleware.RequirePermission(model.AreaInvoices, model.PermissionWrite))

	projects.GET("/:id/budget", handler.GetBudget, middleware.RequirePermission(model.AreaProjects, model.PermissionRead))
	projects.PUT("/:id/budget", handler.UpsertBudget, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))
	projects.GET("/:id/budget/variance", handler.GetBudgetVariance, middleware.RequirePermission(model.AreaProjects, model.PermissionRead))

	projects.GET("/:id/financials", handler.GetProjectFinancials, middleware.RequirePermission(model.AreaProjects, model.PermissionRead))

	changeOrders := api.Group("/change-orders")
	changeOrders.PUT("/:id", handler.UpdateChangeOrder, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))
	changeOrders.DELETE("/:id", handler.DeleteChangeOrder, middleware.RequirePermission(model.AreaProjects, model.PermissionWrite))

	// Cost mutations by ID resolve the area from the stored row
	costs := api.Group("/costs")
	costs.PUT("/:id", handler.UpdateCost)
	costs.DELETE("/:id", handler.DeleteCost)

	employees := api.Group("/employees")
	employees.GET("", handler.ListEmployees, middleware.RequirePermission(model.AreaLabor, model.PermissionRead))
	employees.POST("", handler.CreateEmployee, middleware.RequirePermission(model.AreaLabor, model.PermissionWrite))
	employees.PUT("/:id", handler.UpdateEmployee, middleware.RequirePermission(model.AreaLabor, model.PermissionWrite))
	employees.DELETE("/:id", handler.DeleteEmployee, middleware.RequirePermission(model.AreaLabor, model.PermissionWrite))

	invoices := api.Group("/invoices")
	invoices.PUT("/:id", handler.UpdateInvoice, middleware.RequirePermission(model.AreaInvoices, model.PermissionWrite))
	invoices.DELETE("/:id", handler.DeleteInvoice, middleware.RequirePermission(model.AreaInvoices, model.PermissionWrite))

	invitations := api.Group("/invitations")
	invitations.GET("", handler.ListInvitations, middleware.RequirePermission(model.AreaUsers, model.PermissionRead))
	invitations.POST("", handler.CreateInvitation, middleware.RequirePermission(model.AreaUsers, model.PermissionWrite))
	invitations.POST("/:id/resend", handler.ResendInvitation, middleware.RequirePermission(model.AreaUsers, model.PermissionWrite))
	invitations.POST("/:id/cancel", handler.CancelInvitation, middleware.RequirePermission(model.AreaUsers, model.PermissionWrite))

	// Attachment routes resolve the parent entity's area inside the handler
	attachments := api.Group("/attachments")
	attachments.GET("", handler.ListAttachments)
	attachments.POST("", handler.CreateAttachment)
	attachments.DELETE("/:id", handler.DeleteAttachment)

	return e
}
