package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

const (
	auditResourceKey = "audit_resource_id"
	auditDetailsKey  = "audit_details"
)

// AuditWriter persists audit records.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SetAuditResource names the record a write produced, for routes whose
// path carries no :id (creations).
func SetAuditResource(c *gin.Context, id string) {
	c.Set(auditResourceKey, id)
}

// AddAuditDetail attaches a key to the audit payload of the request.
func AddAuditDetail(c *gin.Context, key string, value interface{}) {
	details, _ := c.Get(auditDetailsKey)
	typed, ok := details.(map[string]interface{})
	if !ok {
		typed = map[string]interface{}{}
		c.Set(auditDetailsKey, typed)
	}
	typed[key] = value
}

// Audit records one audit log per successful write. Failed requests are not
// recorded; a failed insert is reported through c.Error so the request
// logger picks it up.
func Audit(repo AuditWriter, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		payload := map[string]interface{}{
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if claims := Claims(c); claims != nil {
			entry.UserID = &claims.UserID
			payload["role"] = claims.Role
			if claims.TeacherID != "" {
				payload["teacher_id"] = claims.TeacherID
			}
		}
		id := c.GetString(auditResourceKey)
		if id == "" {
			id = c.Param("id")
		}
		if id != "" {
			entry.ResourceID = &id
		}
		if details, ok := c.Get(auditDetailsKey); ok {
			payload["details"] = details
		}
		entry.NewValues, _ = json.Marshal(payload)

		if err := repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
			_ = c.Error(err)
		}
	}
}
