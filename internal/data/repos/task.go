package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type TaskRepo interface {
	Create(dbc dbctx.Context, task *domain.Task) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Task, error)
	ListBySprint(dbc dbctx.Context, sprintID uuid.UUID) ([]*domain.Task, error)
	ListByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) ([]*domain.Task, error)
	ListBacklog(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Task, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	ClearSprint(dbc dbctx.Context, sprintID uuid.UUID) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
	DeleteByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(dbc dbctx.Context, task *domain.Task) error {
	return conn(r.db, dbc).Create(task).Error
}

func (r *taskRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Task, error) {
	var t domain.Task
	if err := conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) ListBySprint(dbc dbctx.Context, sprintID uuid.UUID) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := conn(r.db, dbc).
		Where("sprint_id = ?", sprintID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) ListByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := conn(r.db, dbc).
		Where("milestone_id = ?", milestoneID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListBacklog returns tasks that are not assigned to any sprint.
func (r *taskRepo) ListBacklog(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := conn(r.db, dbc).
		Where("tenant_id = ? AND sprint_id IS NULL", tenantID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return conn(r.db, dbc).Model(&domain.Task{}).Where("id = ?", id).Updates(updates).Error
}

// ClearSprint detaches every task from the given sprint. Used when a sprint is
// deleted; the tasks stay under their milestone.
func (r *taskRepo) ClearSprint(dbc dbctx.Context, sprintID uuid.UUID) error {
	return conn(r.db, dbc).
		Model(&domain.Task{}).
		Where("sprint_id = ?", sprintID).
		Update("sprint_id", nil).Error
}

func (r *taskRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Task{}).Error
}

func (r *taskRepo) DeleteByMilestone(dbc dbctx.Context, milestoneID uuid.UUID) error {
	return conn(r.db, dbc).Where("milestone_id = ?", milestoneID).Delete(&domain.Task{}).Error
}
