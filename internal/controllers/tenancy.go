package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet_monitor/internal/middleware"
)

// requireTenant resolves the carrier scope of the request. Admins pass
// with scope 0 (unscoped); carriers are scoped to their own account ID.
// Aborts the request when no identity is present.
func requireTenant(c *gin.Context) (uint, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
		return 0, false
	}
	if middleware.IsAdmin(c) {
		return 0, true
	}
	return userID, true
}

// tenantScoped narrows a query to the carrier unless the scope is admin.
func tenantScoped(db *gorm.DB, tenantID uint) *gorm.DB {
	if tenantID == 0 {
		return db
	}
	return db.Where("transportadora_id = ?", tenantID)
}
