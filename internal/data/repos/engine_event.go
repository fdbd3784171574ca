package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type EngineEventRepo interface {
	Append(dbc dbctx.Context, event *domain.EngineEvent) error
	ListByEntity(dbc dbctx.Context, tenantID, entityID uuid.UUID) ([]*domain.EngineEvent, error)
}

type engineEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngineEventRepo(db *gorm.DB, baseLog *logger.Logger) EngineEventRepo {
	return &engineEventRepo{db: db, log: baseLog.With("repo", "EngineEventRepo")}
}

func (r *engineEventRepo) Append(dbc dbctx.Context, event *domain.EngineEvent) error {
	return conn(r.db, dbc).Create(event).Error
}

func (r *engineEventRepo) ListByEntity(dbc dbctx.Context, tenantID, entityID uuid.UUID) ([]*domain.EngineEvent, error) {
	var events []*domain.EngineEvent
	if err := conn(r.db, dbc).
		Where("tenant_id = ? AND entity_id = ?", tenantID, entityID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
