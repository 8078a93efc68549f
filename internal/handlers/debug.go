package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meetup-chat-service/internal/service"
	"meetup-chat-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, svc service.ChatService, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Repairs receipt rows lost to interrupted fan-out. Late joiners stay
	// without receipts for messages that predate their membership.
	router.POST("/debug/backfill-receipts", func(c *gin.Context) {
		created, err := svc.BackfillReceipts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "backfill failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"created": created})
	})
}
