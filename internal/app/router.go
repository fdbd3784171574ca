package app

import (
	"github.com/gin-gonic/gin"

	"github.com/nordvale/planline-backend/internal/observability"
	"github.com/nordvale/planline-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware, metrics *observability.Metrics) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:      handlerset.Auth,
		ClientHandler:    handlerset.Client,
		ProjectHandler:   handlerset.Project,
		MilestoneHandler: handlerset.Milestone,
		SprintHandler:    handlerset.Sprint,
		TaskHandler:      handlerset.Task,
		InvoiceHandler:   handlerset.Invoice,
		AuthMiddleware:   mw.Auth,
		TenantMiddleware: mw.Tenant,
		Metrics:          metrics,
		AllowOrigins:     cfg.AllowOrigins,
	})
}
