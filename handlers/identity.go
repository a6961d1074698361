package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/labstockhq/labstock_backend/utils"
)

// IdentityMiddleware maps the identity the upstream gateway attaches to each
// request (X-User-Id / X-User-Name / X-User-Role headers) into the request
// context. The tracker trusts the gateway; it never authenticates itself.
// X-Correlation-Id is propagated when present and minted when absent so the
// audit trail and the notification payloads share one id per user action.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawId := c.GetHeader("X-User-Id")
		userId, err := strconv.Atoi(rawId)
		if rawId == "" || err != nil || userId <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-User-Id header is required"})
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetUserIdInContext(ctx, userId)
		ctx = utils.SetUserNameInContext(ctx, c.GetHeader("X-User-Name"))
		ctx = utils.SetUserRoleInContext(ctx, c.GetHeader("X-User-Role"))

		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
