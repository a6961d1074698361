package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/labstockhq/labstock_backend/models"
	"github.com/labstockhq/labstock_backend/utils"
	"gorm.io/gorm"
)

// OpsHandler serves internal operational endpoints. Admin only.
type OpsHandler struct{}

type replayNotificationsRequest struct {
	RequestId int `json:"request_id" binding:"required"`
}

func (h *OpsHandler) ReplayNotifications(c *gin.Context) {
	role, _ := utils.GetUserRoleFromContext(c.Request.Context())
	if models.UserRole(role) != models.UserRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	var input replayNotificationsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	replayed, err := models.ReplayNotifications(c.Request.Context(), input.RequestId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no failed or dead notifications for this request"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": replayed})
}

func (h *OpsHandler) RebuildInventory(c *gin.Context) {
	role, _ := utils.GetUserRoleFromContext(c.Request.Context())
	if models.UserRole(role) != models.UserRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	if err := models.RebuildInventoryFromLedger(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rebuilt": true})
}
