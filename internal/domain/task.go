package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TaskStatusToDo       = "to_do"
	TaskStatusInProgress = "in_progress"
	TaskStatusInReview   = "in_review"
	TaskStatusTesting    = "testing"
	TaskStatusDone       = "done"
)

// Task is the leaf of the progress hierarchy. Its progress is derived from
// status and never stored; see engine.TaskProgress.
type Task struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant         *Tenant        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	MilestoneID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"milestone_id"`
	Milestone      *Milestone     `gorm:"constraint:OnDelete:CASCADE;foreignKey:MilestoneID;references:ID" json:"milestone,omitempty"`
	SprintID       *uuid.UUID     `gorm:"type:uuid;column:sprint_id;index" json:"sprint_id,omitempty"`
	Sprint         *Sprint        `gorm:"constraint:OnDelete:SET NULL;foreignKey:SprintID;references:ID" json:"sprint,omitempty"`
	AssigneeID     *uuid.UUID     `gorm:"type:uuid;column:assignee_id;index" json:"assignee_id,omitempty"`
	Assignee       *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Description    string         `gorm:"column:description" json:"description,omitempty"`
	Status         string         `gorm:"column:status;not null;default:'to_do';index" json:"status"`
	StartDate      *time.Time     `gorm:"column:start_date;type:date" json:"start_date,omitempty"`
	EndDate        *time.Time     `gorm:"column:end_date;type:date" json:"end_date,omitempty"`
	EstimatedHours *int           `gorm:"column:estimated_hours" json:"estimated_hours,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Task) TableName() string { return "task" }

func (t Task) TenantScopeID() uuid.UUID { return t.TenantID }
