package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant      *Tenant        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	ClientID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	Client      *Client        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClientID;references:ID" json:"client,omitempty"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description,omitempty"`
	Status      string         `gorm:"column:status;not null;default:'planning';index" json:"status"`
	Priority    string         `gorm:"column:priority;not null;default:'medium'" json:"priority"`
	StartDate   *time.Time     `gorm:"column:start_date;type:date" json:"start_date,omitempty"`
	EndDate     *time.Time     `gorm:"column:end_date;type:date" json:"end_date,omitempty"`
	Budget      float64        `gorm:"column:budget;type:numeric(12,2);not null;default:0" json:"budget"`
	Tags        string         `gorm:"column:tags" json:"tags,omitempty"` // comma-separated
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Milestones  []Milestone    `gorm:"foreignKey:ProjectID" json:"milestones,omitempty"`
	TeamMembers []*User        `gorm:"many2many:project_member" json:"team_members,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }

func (p Project) TenantScopeID() uuid.UUID { return p.TenantID }
