package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/internal/service"
)

// Audit records an audit entry through the async emitter after successful
// requests. Failed requests (4xx/5xx) are not audited.
func Audit(audit *service.AuditService, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if audit == nil || c.Writer.Status() >= 400 {
			return
		}

		var actorID string
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			if claims, ok := claimsValue.(*models.JWTClaims); ok {
				actorID = claims.UserID
			}
		}

		audit.Record(service.AuditEntry{
			ActorID:    actorID,
			Action:     action,
			Resource:   resource,
			ResourceID: c.Param("id"),
			New: map[string]interface{}{
				"path":    c.FullPath(),
				"method":  c.Request.Method,
				"status":  c.Writer.Status(),
				"latency": time.Since(start).Milliseconds(),
			},
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
	}
}
