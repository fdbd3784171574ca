package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName    string         `gorm:"column:first_name;not null" json:"first_name"`
	LastName     string         `gorm:"column:last_name;not null" json:"last_name"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

// UserTenant links a user to the tenant they work under, with their role.
type UserTenant struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant     *Tenant   `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	IsOwner    bool      `gorm:"column:is_owner;not null;default:false" json:"is_owner"`
	IsApproved bool      `gorm:"column:is_approved;not null;default:true" json:"is_approved"`
	Role       string    `gorm:"column:role;not null;default:'Employee'" json:"role"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (UserTenant) TableName() string { return "user_tenant" }

func (ut UserTenant) TenantScopeID() uuid.UUID { return ut.TenantID }
