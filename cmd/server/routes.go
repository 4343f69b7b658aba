package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"nexart.backend/internal/interfaces/http/handlers"
	"nexart.backend/pkg/metrics"
)

type routeDeps struct {
	apiKeyHandler  *handlers.ApiKeyHandler
	accountHandler *handlers.AccountHandler
	renderHandler  *handlers.RenderHandler
	webhookHandler *handlers.WebhookHandler
	sessionAuth    gin.HandlerFunc
	apiKeyAuth     gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Billing webhooks (signature-verified, no session)
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/billing", d.webhookHandler.HandleBillingWebhook)
		}

		// Dashboard routes (session token)
		keys := v1.Group("/keys")
		keys.Use(d.sessionAuth)
		{
			keys.POST("", d.apiKeyHandler.CreateApiKey)
			keys.GET("", d.apiKeyHandler.ListApiKeys)
			keys.POST("/:id/rotate", d.apiKeyHandler.RotateApiKey)
			keys.DELETE("/:id", d.apiKeyHandler.RevokeApiKey)
		}

		account := v1.Group("/account")
		account.Use(d.sessionAuth)
		{
			account.GET("/plan", d.accountHandler.GetPlan)
		}

		// Metered execution (bearer API key)
		renders := v1.Group("/renders")
		renders.Use(d.apiKeyAuth)
		{
			renders.POST("", d.renderHandler.CreateRender)
		}
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "nexart-backend",
			"version": "0.1.0",
		})
	})
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
