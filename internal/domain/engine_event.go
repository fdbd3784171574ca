package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EngineEvent is an audit row written for every committed engine operation.
type EngineEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Op         string         `gorm:"column:op;not null;index" json:"op"`
	EntityType string         `gorm:"column:entity_type;not null;index" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"type:uuid;column:entity_id;index" json:"entity_id"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (EngineEvent) TableName() string { return "engine_event" }

func (e EngineEvent) TenantScopeID() uuid.UUID { return e.TenantID }
