package app

import (
	"github.com/nordvale/planline-backend/internal/handlers"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Client    *handlers.ClientHandler
	Project   *handlers.ProjectHandler
	Milestone *handlers.MilestoneHandler
	Sprint    *handlers.SprintHandler
	Task      *handlers.TaskHandler
	Invoice   *handlers.InvoiceHandler
}

func wireHandlers(log *logger.Logger, reposet Repos, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:   handlers.NewAuthHandler(log, serviceset.Auth),
		Client: handlers.NewClientHandler(log, reposet.Client, reposet.Project),
		Project: handlers.NewProjectHandler(log, serviceset.Engine,
			reposet.Project, reposet.Milestone, reposet.EngineEvent, serviceset.Progress),
		Milestone: handlers.NewMilestoneHandler(log, serviceset.Engine,
			reposet.Milestone, reposet.Sprint, reposet.Task, serviceset.Progress),
		Sprint: handlers.NewSprintHandler(log, serviceset.Engine,
			reposet.Sprint, reposet.Task, serviceset.Progress),
		Task:    handlers.NewTaskHandler(log, serviceset.Engine, reposet.Task, serviceset.Progress),
		Invoice: handlers.NewInvoiceHandler(log, reposet.Invoice, reposet.Payment, reposet.Client),
	}
}
