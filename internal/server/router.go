package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nordvale/planline-backend/internal/handlers"
	"github.com/nordvale/planline-backend/internal/middleware"
	"github.com/nordvale/planline-backend/internal/observability"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	ClientHandler    *handlers.ClientHandler
	ProjectHandler   *handlers.ProjectHandler
	MilestoneHandler *handlers.MilestoneHandler
	SprintHandler    *handlers.SprintHandler
	TaskHandler      *handlers.TaskHandler
	InvoiceHandler   *handlers.InvoiceHandler

	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
	Metrics          *observability.Metrics

	AllowOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Tenant-ID"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("planline"))
	router.Use(middleware.Metrics(cfg.Metrics))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.Metrics != nil {
		router.GET("/metrics", func(c *gin.Context) {
			cfg.Metrics.WriteHTTP(c.Writer, c.Request)
		})
	}
	router.POST("/signup", cfg.AuthHandler.Signup)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.Use(cfg.TenantMiddleware.ResolveTenant())

	protected.POST("/refresh", cfg.AuthHandler.Refresh)

	// Clients
	protected.GET("/clients", cfg.ClientHandler.List)
	protected.POST("/clients", cfg.ClientHandler.Create)
	protected.GET("/clients/:id", cfg.ClientHandler.Get)
	protected.PATCH("/clients/:id", cfg.ClientHandler.Update)
	protected.DELETE("/clients/:id", cfg.ClientHandler.Delete)
	protected.GET("/clients/:id/projects", cfg.ClientHandler.Projects)

	// Projects
	protected.GET("/projects", cfg.ProjectHandler.List)
	protected.POST("/projects", cfg.ProjectHandler.Create)
	protected.GET("/projects/:id", cfg.ProjectHandler.Get)
	protected.PATCH("/projects/:id", cfg.ProjectHandler.Update)
	protected.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	protected.GET("/projects/:id/milestones", cfg.ProjectHandler.Milestones)
	protected.GET("/projects/:id/progress", cfg.ProjectHandler.Progress)
	protected.GET("/projects/:id/events", cfg.ProjectHandler.Events)
	protected.POST("/projects/:id/recompute", cfg.ProjectHandler.Recompute)
	protected.POST("/projects/recompute", cfg.TenantMiddleware.RequireRole("Owner", "Admin"), cfg.ProjectHandler.RecomputeAll)

	// Milestones
	protected.POST("/milestones", cfg.MilestoneHandler.Create)
	protected.GET("/milestones/:id", cfg.MilestoneHandler.Get)
	protected.PATCH("/milestones/:id", cfg.MilestoneHandler.Update)
	protected.DELETE("/milestones/:id", cfg.MilestoneHandler.Delete)
	protected.GET("/milestones/:id/sprints", cfg.MilestoneHandler.Sprints)
	protected.GET("/milestones/:id/tasks", cfg.MilestoneHandler.Tasks)

	// Sprints
	protected.POST("/sprints", cfg.SprintHandler.Create)
	protected.GET("/sprints/:id", cfg.SprintHandler.Get)
	protected.PATCH("/sprints/:id", cfg.SprintHandler.Update)
	protected.DELETE("/sprints/:id", cfg.SprintHandler.Delete)
	protected.GET("/sprints/:id/tasks", cfg.SprintHandler.Tasks)
	protected.POST("/sprints/:id/tasks", cfg.SprintHandler.CreateTask)
	protected.POST("/sprints/:id/tasks/:taskId/assign", cfg.SprintHandler.AssignTask)
	protected.POST("/sprints/:id/tasks/:taskId/unassign", cfg.SprintHandler.UnassignTask)

	// Tasks
	protected.POST("/tasks", cfg.TaskHandler.Create)
	protected.GET("/tasks/backlog", cfg.TaskHandler.Backlog)
	protected.GET("/tasks/:id", cfg.TaskHandler.Get)
	protected.PATCH("/tasks/:id", cfg.TaskHandler.Update)
	protected.DELETE("/tasks/:id", cfg.TaskHandler.Delete)

	// Invoices
	protected.GET("/invoices", cfg.InvoiceHandler.List)
	protected.POST("/invoices", cfg.InvoiceHandler.Create)
	protected.GET("/invoices/:id", cfg.InvoiceHandler.Get)
	protected.GET("/invoices/:id/payments", cfg.InvoiceHandler.Payments)
	protected.POST("/invoices/:id/payments", cfg.InvoiceHandler.RecordPayment)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
