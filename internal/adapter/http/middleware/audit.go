package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
	idParam      string
}

// auditRoutes maps "METHOD route-pattern" to the audited action.
// Purchases are audited by the transaction engine itself.
var auditRoutes = map[string]auditRoute{
	"POST /users":                    {domain.AuditActionRegister, "user", ""},
	"POST /token":                    {domain.AuditActionLogin, "session", ""},
	"POST /token/refresh":            {domain.AuditActionTokenRefresh, "session", ""},
	"PUT /users/:id/change_password": {domain.AuditActionChangePassword, "user", "id"},
	"POST /merchants":                {domain.AuditActionMerchantCreate, "merchant", ""},
	"PUT /merchants/:id":             {domain.AuditActionMerchantUpdate, "merchant", "id"},
	"DELETE /merchants/:id":          {domain.AuditActionMerchantDelete, "merchant", "id"},
	"POST /items":                    {domain.AuditActionItemCreate, "item", ""},
	"PUT /items/:id":                 {domain.AuditActionItemUpdate, "item", "id"},
	"DELETE /items/:id":              {domain.AuditActionItemDelete, "item", "id"},
	"POST /wallets/:id":              {domain.AuditActionWalletCreate, "merchant", "id"},
	"PUT /wallets/:id":               {domain.AuditActionWalletUpdate, "wallet", "id"},
	"POST /wallets/:id/topup":        {domain.AuditActionWalletTopup, "wallet", "id"},
	"DELETE /wallets/:id":            {domain.AuditActionWalletDelete, "wallet", "id"},
}

// AuditLog creates an audit middleware that logs successful write operations.
// It maps the matched route pattern to an audit action.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route, ok := mapRouteToAction(c.Request.Method, c.FullPath())
		if !ok {
			return
		}

		var userID *int64
		if user, ok := CurrentUser(c); ok {
			id := user.ID
			userID = &id
		}
		var resourceID string
		if route.idParam != "" {
			resourceID = c.Param(route.idParam)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			UserID:       userID,
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(method, fullPath string) (auditRoute, bool) {
	route, ok := auditRoutes[method+" "+fullPath]
	return route, ok
}
