package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invoice struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant    *Tenant        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	ClientID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	Client    *Client        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClientID;references:ID" json:"client,omitempty"`
	ProjectID *uuid.UUID     `gorm:"type:uuid;column:project_id;index" json:"project_id,omitempty"`
	Project   *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Amount    float64        `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Paid      bool           `gorm:"column:paid;not null;default:false" json:"paid"`
	IssuedAt  time.Time      `gorm:"column:issued_at;not null;default:now()" json:"issued_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Invoice) TableName() string { return "invoice" }

func (i Invoice) TenantScopeID() uuid.UUID { return i.TenantID }

type Payment struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant    *Tenant        `gorm:"constraint:OnDelete:CASCADE;foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	InvoiceID uuid.UUID      `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Invoice   *Invoice       `gorm:"constraint:OnDelete:CASCADE;foreignKey:InvoiceID;references:ID" json:"invoice,omitempty"`
	Amount    float64        `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PaidAt    time.Time      `gorm:"column:paid_at;not null;default:now()" json:"paid_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Payment) TableName() string { return "payment" }

func (p Payment) TenantScopeID() uuid.UUID { return p.TenantID }
