package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, project *domain.Project) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Project, error)
	List(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Project, error)
	ListByClient(dbc dbctx.Context, tenantID, clientID uuid.UUID) ([]*domain.Project, error)
	ListIDs(dbc dbctx.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(dbc dbctx.Context, project *domain.Project) error {
	return conn(r.db, dbc).Create(project).Error
}

func (r *projectRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	if err := conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) List(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Project, error) {
	var projects []*domain.Project
	if err := conn(r.db, dbc).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepo) ListByClient(dbc dbctx.Context, tenantID, clientID uuid.UUID) ([]*domain.Project, error) {
	var projects []*domain.Project
	if err := conn(r.db, dbc).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepo) ListIDs(dbc dbctx.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := conn(r.db, dbc).
		Model(&domain.Project{}).
		Where("tenant_id = ?", tenantID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *projectRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return conn(r.db, dbc).Model(&domain.Project{}).Where("id = ?", id).Updates(updates).Error
}

func (r *projectRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Project{}).Error
}
