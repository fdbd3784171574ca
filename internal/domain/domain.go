// Package domain defines the persisted entities of the planline backend.
//
// Every business entity belongs to exactly one tenant; the tenant id is a pure
// partition key and never participates in progress/status computation.
package domain

import "github.com/google/uuid"

// TenantScoped is implemented by every entity that is partitioned by tenant.
type TenantScoped interface {
	TenantScopeID() uuid.UUID
}
