package app

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/engine"
	"github.com/nordvale/planline-backend/internal/observability"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/platform/sendgrid"
	"github.com/nordvale/planline-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Engine   engine.Engine
	Progress services.ProgressService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	rdb *redis.Client,
	metrics *observability.Metrics,
) Services {
	log.Info("Wiring services...")

	authService := services.NewAuthService(db, log,
		reposet.User, reposet.UserTenant, reposet.Tenant,
		cfg.JWTSecretKey, cfg.AccessTokenTTL)

	// Email delivery is optional; without credentials the engine falls back
	// to its no-op notifier.
	var notifier engine.Notifier
	if mail, err := sendgrid.NewFromEnv(log); err != nil {
		log.Warn("Email notifier disabled", "error", err)
	} else {
		notifier = services.NewEmailNotifier(log, mail, reposet.User, metrics, cfg.NotifyFallbackEmail)
	}

	eng := engine.New(engine.Deps{
		Base: engine.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: engine.NewObservabilityHooks(metrics),
		},
		Policy: engine.CascadePolicy{
			AutoActivateSprints: cfg.AutoActivateSprints,
			AutoCompleteSprints: cfg.AutoCompleteSprints,
		},
		Projects:   reposet.Project,
		Milestones: reposet.Milestone,
		Sprints:    reposet.Sprint,
		Tasks:      reposet.Task,
		Events:     reposet.EngineEvent,
		Notifier:   notifier,
	})

	progressService := services.NewProgressService(log, rdb, eng,
		reposet.Project, reposet.Milestone, reposet.Sprint,
		metrics, cfg.ProgressCacheTTL)

	return Services{
		Auth:     authService,
		Engine:   eng,
		Progress: progressService,
	}
}
