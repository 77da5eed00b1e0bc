package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/kizunalab/machiba/internal/api/middleware"
	"github.com/kizunalab/machiba/internal/domain"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// LINE platform webhook (authenticated by its own signature scheme)
	router.POST("/webhooks/line", handler.LineWebhook)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Page-view analytics (open, called by the public site's beacon)
		v1.POST("/analytics/record", handler.RecordAccess)
		v1.GET("/analytics/stats", handler.GetStats)

		// Public site content (published items only)
		v1.GET("/events", handler.ListPublicEvents)
		v1.GET("/events/:id", handler.GetPublicEvent)
		v1.GET("/reports", handler.ListPublicReports)
		v1.GET("/reports/:id", handler.GetPublicReport)

		// Admin back office
		admin := v1.Group("/admin")
		admin.POST("/login", handler.Login)

		authed := admin.Group("", middleware.Auth(authCfg))
		{
			// Content management
			authed.GET("/events", handler.ListEvents)
			authed.POST("/events", handler.CreateEvent)
			authed.PUT("/events/:id", handler.UpdateEvent)
			authed.DELETE("/events/:id", handler.DeleteEvent)

			authed.GET("/reports", handler.ListReports)
			authed.POST("/reports", handler.CreateReport)
			authed.PUT("/reports/:id", handler.UpdateReport)
			authed.DELETE("/reports/:id", handler.DeleteReport)

			authed.GET("/templates", handler.ListTemplates)
			authed.POST("/templates", handler.CreateTemplate)
			authed.PUT("/templates/:id", handler.UpdateTemplate)
			authed.DELETE("/templates/:id", handler.DeleteTemplate)
			authed.POST("/templates/:id/render", handler.RenderTemplate)

			// Messaging, payments, uploads
			authed.POST("/messages", handler.SendMessage)
			authed.POST("/payments/links", handler.CreatePaymentLink)
			authed.POST("/uploads", handler.UploadImage)

			// Audit log
			authed.GET("/activities", handler.ListActivities)

			// User management (admin role only)
			users := authed.Group("/users", middleware.RequireRole(domain.RoleAdmin))
			users.GET("", handler.ListUsers)
			users.POST("", handler.CreateUser)
			users.PUT("/:id", handler.UpdateUser)
			users.DELETE("/:id", handler.DeleteUser)
		}
	}
}
