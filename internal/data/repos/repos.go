// Package repos holds the per-entity persistence repositories. Every method
// takes a dbctx.Context so engine writes can thread one transaction through
// the whole ancestor chain while plain reads run on the pooled connection.
package repos

import (
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"gorm.io/gorm"
)

func conn(db *gorm.DB, dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return db.WithContext(dbc.Ctx)
}
