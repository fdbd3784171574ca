package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SprintStatusPlanned   = "planned"
	SprintStatusActive    = "active"
	SprintStatusCompleted = "completed"
	SprintStatusCanceled  = "canceled"
)

type Sprint struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant      *Tenant        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	MilestoneID uuid.UUID      `gorm:"type:uuid;not null;index" json:"milestone_id"`
	Milestone   *Milestone     `gorm:"constraint:OnDelete:CASCADE;foreignKey:MilestoneID;references:ID" json:"milestone,omitempty"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Status      string         `gorm:"column:status;not null;default:'planned';index" json:"status"`
	StartDate   *time.Time     `gorm:"column:start_date;type:date" json:"start_date,omitempty"`
	EndDate     *time.Time     `gorm:"column:end_date;type:date" json:"end_date,omitempty"`
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Tasks       []Task         `gorm:"foreignKey:SprintID" json:"tasks,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Sprint) TableName() string { return "sprint" }

func (s Sprint) TenantScopeID() uuid.UUID { return s.TenantID }
