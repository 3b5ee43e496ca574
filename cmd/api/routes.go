package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"call-ledger/internal/access"
	"call-ledger/internal/httpapi"
	"call-ledger/internal/provider"
	"call-ledger/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, webhook *provider.Webhook, authMW gin.HandlerFunc, db *sql.DB) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public; authenticated by shared secret header).
	r.POST("/webhooks/vapi", webhook.Handle)

	// Token issuance stays outside the auth middleware.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			id, err := access.IdentityFrom(c.Request.Context())
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
		})

		// CALLS routes. Reads are visibility-scoped inside the ledger; writes
		// come from the orchestrator, so they sit behind the service role.
		calls := v1.Group("/calls")
		{
			calls.GET("", h.ListCalls)
			calls.GET("/stats", h.CallStats)
			calls.GET("/:call_id", h.GetCall)
			calls.POST("", access.RequireAnyRole(), h.CreateCall)
		}

		// USERS routes
		userGroup := v1.Group("/users")
		{
			userGroup.GET("/:user_id", h.GetUser)
			userGroup.POST("", access.RequireAnyRole(), h.UpsertUser)
			userGroup.DELETE("/:user_id", access.RequireAnyRole(), h.DeleteUser)
		}
	}
}
