package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type ClientRepo interface {
	Create(dbc dbctx.Context, client *domain.Client) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Client, error)
	List(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Client, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error
}

type clientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClientRepo(db *gorm.DB, baseLog *logger.Logger) ClientRepo {
	return &clientRepo{db: db, log: baseLog.With("repo", "ClientRepo")}
}

func (r *clientRepo) Create(dbc dbctx.Context, client *domain.Client) error {
	return conn(r.db, dbc).Create(client).Error
}

func (r *clientRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Client, error) {
	var c domain.Client
	if err := conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepo) List(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Client, error) {
	var clients []*domain.Client
	if err := conn(r.db, dbc).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return conn(r.db, dbc).Model(&domain.Client{}).Where("id = ?", id).Updates(updates).Error
}

func (r *clientRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) error {
	return conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Client{}).Error
}
