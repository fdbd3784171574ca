package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(dbc dbctx.Context, user *domain.User) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*domain.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, user *domain.User) error {
	return conn(r.db, dbc).Create(user).Error
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := conn(r.db, dbc).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := conn(r.db, dbc).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	var count int64
	if err := conn(r.db, dbc).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type UserTenantRepo interface {
	Create(dbc dbctx.Context, link *domain.UserTenant) error
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserTenant, error)
	ListByTenant(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.UserTenant, error)
}

type userTenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTenantRepo(db *gorm.DB, baseLog *logger.Logger) UserTenantRepo {
	return &userTenantRepo{db: db, log: baseLog.With("repo", "UserTenantRepo")}
}

func (r *userTenantRepo) Create(dbc dbctx.Context, link *domain.UserTenant) error {
	return conn(r.db, dbc).Create(link).Error
}

func (r *userTenantRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserTenant, error) {
	var link domain.UserTenant
	if err := conn(r.db, dbc).Where("user_id = ?", userID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *userTenantRepo) ListByTenant(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.UserTenant, error) {
	var links []*domain.UserTenant
	if err := conn(r.db, dbc).Where("tenant_id = ?", tenantID).Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
