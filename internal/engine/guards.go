package engine

import (
	"strings"

	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"gorm.io/gorm"
)

// CASGuard provides optimistic concurrency helpers for engine writes. Ancestor
// writes performed by the cascade go through compare-and-set on the snapshot
// the recompute cycle read, so that concurrent cascades over the same chain
// cannot lose updates.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

func (g CASGuard) guardedUpdate(dbc dbctx.Context, table string, id uuid.UUID, updates map[string]any, cond string, args ...any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for a guarded update")
	}
	where := append([]any{id}, args...)
	res := db.Table(table).
		Where("id = ? AND "+cond+" AND deleted_at IS NULL", where...).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateByStatus updates a row only when id+status guard matches.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, updates map[string]any) (bool, error) {
	if len(allowedStatuses) == 0 {
		return false, ValidationError("allowedStatuses must not be empty")
	}
	return g.guardedUpdate(dbc, table, id, updates, "status IN ?", allowedStatuses)
}

// UpdateByProgress updates a row only when its stored progress still matches
// the value the caller read. A miss means another write landed between the
// read and this update and the recompute has to start over.
func (g CASGuard) UpdateByProgress(dbc dbctx.Context, table string, id uuid.UUID, expectedProgress int, updates map[string]any) (bool, error) {
	return g.guardedUpdate(dbc, table, id, updates, "progress = ?", expectedProgress)
}

// UpdateByStatusAndProgress guards on both fields of the snapshot a recompute
// cycle read; either one changing concurrently forces a retry.
func (g CASGuard) UpdateByStatusAndProgress(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, expectedProgress int, updates map[string]any) (bool, error) {
	if len(allowedStatuses) == 0 {
		return false, ValidationError("allowedStatuses must not be empty")
	}
	return g.guardedUpdate(dbc, table, id, updates, "status IN ? AND progress = ?", allowedStatuses, expectedProgress)
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
