package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type SprintRepo interface {
	Create(dbc dbctx.Context, sprint *domain.Sprint) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Sprint, error)
	ListByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) ([]*domain.Sprint, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
	DeleteByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) error
}

type sprintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSprintRepo(db *gorm.DB, baseLog *logger.Logger) SprintRepo {
	return &sprintRepo{db: db, log: baseLog.With("repo", "SprintRepo")}
}

func (r *sprintRepo) Create(dbc dbctx.Context, sprint *domain.Sprint) error {
	return conn(r.db, dbc).Create(sprint).Error
}

func (r *sprintRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Sprint, error) {
	var s domain.Sprint
	if err := conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sprintRepo) ListByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) ([]*domain.Sprint, error) {
	var sprints []*domain.Sprint
	if err := conn(r.db, dbc).
		Where("milestone_id = ?", milestoneID).
		Order("created_at ASC").
		Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

func (r *sprintRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return conn(r.db, dbc).Model(&domain.Sprint{}).Where("id = ?", id).Updates(updates).Error
}

func (r *sprintRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Sprint{}).Error
}

func (r *sprintRepo) DeleteByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) error {
	return conn(r.db, dbc).Where("milestone_id = ?", milestoneID).Delete(&domain.Sprint{}).Error
}
