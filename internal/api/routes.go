package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rentpilot/internal/models"
)

// SetupRoutes registers every API route on the router
func SetupRoutes(router *gin.Engine, handler *Handler, allowedOrigins []string) {
	router.Use(RequestLogger(handler.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireSession := RequireSession(handler.auth)
	landlordOnly := RequireRole(models.RoleLandlord)

	api := router.Group("/api")
	{
		api.POST("/auth/signup", handler.SignUp)
		api.POST("/auth/session", handler.SignIn)
		api.GET("/auth/guard", OptionalSession(handler.auth), handler.Guard)

		api.GET("/properties/available", handler.ListAvailableProperties)
		api.POST("/properties/:id/applications", OptionalSession(handler.auth), handler.SubmitApplication)

		// Credentials travel inside the token or the shared secret
		api.GET("/files/:token", handler.ServeFile)
		api.POST("/billing/events", handler.BillingEvent)
	}

	private := api.Group("", requireSession)
	{
		private.DELETE("/auth/session", handler.SignOut)
		private.GET("/auth/me", handler.Me)
		private.DELETE("/account", handler.DeleteAccount)

		private.GET("/notifications", handler.ListNotifications)
		private.GET("/notifications/unread-count", handler.UnreadNotificationCount)
		private.POST("/notifications/read-all", handler.MarkAllNotificationsRead)
		private.POST("/notifications/:id/read", handler.MarkNotificationRead)
		private.GET("/notifications/stream", handler.StreamNotifications)

		private.GET("/properties", landlordOnly, handler.ListProperties)
		private.POST("/properties", landlordOnly, handler.CreateProperty)
		private.PATCH("/properties/:id", landlordOnly, handler.UpdateProperty)

		private.GET("/leases", handler.ListLeases)
		private.POST("/leases", landlordOnly, handler.CreateLease)
		private.PATCH("/leases/:id/status", landlordOnly, handler.UpdateLeaseStatus)

		private.GET("/leases/:id/messages", handler.ListMessages)
		private.POST("/leases/:id/messages", handler.SendMessage)
		private.POST("/leases/:id/messages/read-all", handler.MarkLeaseMessagesRead)
		private.GET("/messages/unread-count", handler.UnreadMessageCount)
		private.POST("/messages/:id/read", handler.MarkMessageRead)

		private.GET("/analytics", landlordOnly, handler.GetAnalytics)
		private.GET("/applications", landlordOnly, handler.ListApplications)
		private.GET("/applications/board", landlordOnly, handler.GetBoard)
		private.PATCH("/applications/:id/status", landlordOnly, handler.MoveApplication)

		private.POST("/documents", handler.UploadDocument)
		private.GET("/documents", handler.ListDocuments)
		private.DELETE("/documents/:id", handler.DeleteDocument)
		private.GET("/documents/:id/url", handler.DocumentURL)

		private.GET("/billing/subscription", handler.GetSubscription)
		private.POST("/billing/checkout", handler.CreateCheckout)
		private.POST("/billing/portal", handler.OpenPortal)
	}
}
