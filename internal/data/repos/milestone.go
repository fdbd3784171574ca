package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type MilestoneRepo interface {
	Create(dbc dbctx.Context, milestone *domain.Milestone) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Milestone, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.Milestone, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
}

type milestoneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMilestoneRepo(db *gorm.DB, baseLog *logger.Logger) MilestoneRepo {
	return &milestoneRepo{db: db, log: baseLog.With("repo", "MilestoneRepo")}
}

func (r *milestoneRepo) Create(dbc dbctx.Context, milestone *domain.Milestone) error {
	return conn(r.db, dbc).Create(milestone).Error
}

func (r *milestoneRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Milestone, error) {
	var m domain.Milestone
	if err := conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *milestoneRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*domain.Milestone, error) {
	var milestones []*domain.Milestone
	if err := conn(r.db, dbc).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

func (r *milestoneRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return conn(r.db, dbc).Model(&domain.Milestone{}).Where("id = ?", id).Updates(updates).Error
}

func (r *milestoneRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Milestone{}).Error
}
