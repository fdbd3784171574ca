package app

import (
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

type Repos struct {
	Tenant      repos.TenantRepo
	User        repos.UserRepo
	UserTenant  repos.UserTenantRepo
	Client      repos.ClientRepo
	Project     repos.ProjectRepo
	Milestone   repos.MilestoneRepo
	Sprint      repos.SprintRepo
	Task        repos.TaskRepo
	Invoice     repos.InvoiceRepo
	Payment     repos.PaymentRepo
	EngineEvent repos.EngineEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tenant:      repos.NewTenantRepo(db, log),
		User:        repos.NewUserRepo(db, log),
		UserTenant:  repos.NewUserTenantRepo(db, log),
		Client:      repos.NewClientRepo(db, log),
		Project:     repos.NewProjectRepo(db, log),
		Milestone:   repos.NewMilestoneRepo(db, log),
		Sprint:      repos.NewSprintRepo(db, log),
		Task:        repos.NewTaskRepo(db, log),
		Invoice:     repos.NewInvoiceRepo(db, log),
		Payment:     repos.NewPaymentRepo(db, log),
		EngineEvent: repos.NewEngineEventRepo(db, log),
	}
}
