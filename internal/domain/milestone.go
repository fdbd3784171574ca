package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MilestoneStatusPlanning  = "planning"
	MilestoneStatusActive    = "active"
	MilestoneStatusCompleted = "completed"
)

type Milestone struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant       *Tenant        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	ProjectID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Project      *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Description  string         `gorm:"column:description" json:"description,omitempty"`
	Status       string         `gorm:"column:status;not null;default:'planning';index" json:"status"`
	PlannedStart *time.Time     `gorm:"column:planned_start;type:date" json:"planned_start,omitempty"`
	ActualStart  *time.Time     `gorm:"column:actual_start;type:date" json:"actual_start,omitempty"`
	DueDate      *time.Time     `gorm:"column:due_date;type:date" json:"due_date,omitempty"`
	AssigneeID   *uuid.UUID     `gorm:"type:uuid;column:assignee_id;index" json:"assignee_id,omitempty"`
	Assignee     *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`
	Progress     int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Sprints      []Sprint       `gorm:"foreignKey:MilestoneID" json:"sprints,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Milestone) TableName() string { return "milestone" }

func (m Milestone) TenantScopeID() uuid.UUID { return m.TenantID }
