package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/engine"
	"github.com/nordvale/planline-backend/internal/observability"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

// ProgressSnapshot is the denormalized progress view served to dashboards.
// The database stays authoritative; the cache only shortcuts reads.
type ProgressSnapshot struct {
	ProjectID  uuid.UUID           `json:"project_id"`
	Progress   int                 `json:"progress"`
	Status     string              `json:"status"`
	Milestones []MilestoneSnapshot `json:"milestones"`
	ComputedAt time.Time           `json:"computed_at"`
}

type MilestoneSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Progress int       `json:"progress"`
	Sprints  int       `json:"sprints"`
}

type ProgressService interface {
	ProjectSnapshot(ctx context.Context, tenantID, projectID uuid.UUID) (*ProgressSnapshot, error)
	Invalidate(ctx context.Context, tenantID, projectID uuid.UUID)
	RecomputeAll(ctx context.Context, tenantID uuid.UUID) (int, error)
}

type progressService struct {
	log        *logger.Logger
	rdb        *redis.Client
	eng        engine.Engine
	projects   repos.ProjectRepo
	milestones repos.MilestoneRepo
	sprints    repos.SprintRepo
	metrics    *observability.Metrics
	cacheTTL   time.Duration
	sweepLimit int
}

func NewProgressService(
	log *logger.Logger,
	rdb *redis.Client,
	eng engine.Engine,
	projects repos.ProjectRepo,
	milestones repos.MilestoneRepo,
	sprints repos.SprintRepo,
	metrics *observability.Metrics,
	cacheTTL time.Duration,
) ProgressService {
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &progressService{
		log:        log.With("service", "ProgressService"),
		rdb:        rdb,
		eng:        eng,
		projects:   projects,
		milestones: milestones,
		sprints:    sprints,
		metrics:    metrics,
		cacheTTL:   cacheTTL,
		sweepLimit: 8,
	}
}

func snapshotKey(tenantID, projectID uuid.UUID) string {
	return fmt.Sprintf("progress:%s:%s", tenantID, projectID)
}

// ProjectSnapshot serves the cached snapshot when fresh and rebuilds it from
// the database on a miss.
func (s *progressService) ProjectSnapshot(ctx context.Context, tenantID, projectID uuid.UUID) (*ProgressSnapshot, error) {
	key := snapshotKey(tenantID, projectID)
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var snap ProgressSnapshot
			if json.Unmarshal(raw, &snap) == nil {
				s.metrics.IncProgressCache("hit")
				return &snap, nil
			}
		} else if err != redis.Nil {
			s.log.Warn("progress cache read failed", "key", key, "error", err)
		}
	}
	s.metrics.IncProgressCache("miss")

	snap, err := s.buildSnapshot(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if s.rdb != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.rdb.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
				s.log.Warn("progress cache write failed", "key", key, "error", err)
			}
		}
	}
	return snap, nil
}

func (s *progressService) buildSnapshot(ctx context.Context, tenantID, projectID uuid.UUID) (*ProgressSnapshot, error) {
	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.projects.GetByID(dbc, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	milestones, err := s.milestones.ListByProject(dbc, projectID)
	if err != nil {
		return nil, err
	}
	snap := &ProgressSnapshot{
		ProjectID:  projectID,
		Progress:   project.Progress,
		Status:     project.Status,
		Milestones: make([]MilestoneSnapshot, 0, len(milestones)),
		ComputedAt: time.Now().UTC(),
	}
	for _, m := range milestones {
		sprints, err := s.sprints.ListByMilestone(dbc, m.ID)
		if err != nil {
			return nil, err
		}
		snap.Milestones = append(snap.Milestones, MilestoneSnapshot{
			ID:       m.ID,
			Name:     m.Name,
			Status:   m.Status,
			Progress: m.Progress,
			Sprints:  len(sprints),
		})
	}
	return snap, nil
}

func (s *progressService) Invalidate(ctx context.Context, tenantID, projectID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, snapshotKey(tenantID, projectID)).Err(); err != nil {
		s.log.Warn("progress cache invalidate failed", "project_id", projectID, "error", err)
	}
}

// RecomputeAll rebuilds stored progress for every project of the tenant and
// drops the cached snapshots. Returns the number of projects swept.
func (s *progressService) RecomputeAll(ctx context.Context, tenantID uuid.UUID) (int, error) {
	start := time.Now()
	ids, err := s.projects.ListIDs(dbctx.Context{Ctx: ctx}, tenantID)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.sweepLimit)
	for _, id := range ids {
		projectID := id
		g.Go(func() error {
			if _, err := s.eng.RecomputeProjectProgress(gctx, tenantID, projectID); err != nil {
				return fmt.Errorf("recompute project %s: %w", projectID, err)
			}
			s.Invalidate(gctx, tenantID, projectID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.ObserveRecompute("failure", time.Since(start))
		return 0, err
	}
	s.metrics.ObserveRecompute("success", time.Since(start))
	s.log.Info("progress sweep complete", "tenant_id", tenantID, "projects", len(ids), "took", time.Since(start).String())
	return len(ids), nil
}
