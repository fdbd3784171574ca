package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type TenantRepo interface {
	Create(dbc dbctx.Context, tenant *domain.Tenant) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Tenant, error)
	GetByDomain(dbc dbctx.Context, tenantDomain string) (*domain.Tenant, error)
}

type tenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	return &tenantRepo{db: db, log: baseLog.With("repo", "TenantRepo")}
}

func (r *tenantRepo) Create(dbc dbctx.Context, tenant *domain.Tenant) error {
	return conn(r.db, dbc).Create(tenant).Error
}

func (r *tenantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := conn(r.db, dbc).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) GetByDomain(dbc dbctx.Context, tenantDomain string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := conn(r.db, dbc).Where("domain = ?", tenantDomain).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
