package app

import (
	"github.com/nordvale/planline-backend/internal/middleware"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth   *middleware.AuthMiddleware
	Tenant *middleware.TenantMiddleware
}

func wireMiddleware(log *logger.Logger, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:   middleware.NewAuthMiddleware(log, serviceset.Auth),
		Tenant: middleware.NewTenantMiddleware(log),
	}
}
