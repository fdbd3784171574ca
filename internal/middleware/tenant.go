package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/requestdata"
)

// TenantMiddleware pins every request to the tenant baked into the access
// token. A client may echo X-Tenant-ID for explicitness; a mismatch is
// rejected rather than honored.
type TenantMiddleware struct {
	log *logger.Logger
}

func NewTenantMiddleware(log *logger.Logger) *TenantMiddleware {
	return &TenantMiddleware{log: log.With("middleware", "TenantMiddleware")}
}

func (tm *TenantMiddleware) ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil || rd.TenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no tenant scope"})
			return
		}
		if header := strings.TrimSpace(c.GetHeader("X-Tenant-ID")); header != "" {
			headerID, err := uuid.Parse(header)
			if err != nil || headerID != rd.TenantID {
				tm.log.Warn("tenant header mismatch", "header", header, "token_tenant", rd.TenantID)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant mismatch"})
				return
			}
		}
		c.Next()
	}
}

// RequireRole gates an endpoint to the listed tenant roles.
func (tm *TenantMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(rd.Role))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
