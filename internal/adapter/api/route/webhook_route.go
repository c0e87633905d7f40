package route

import (
	"github.com/gin-gonic/gin"

	"github.com/cartwala/cartwala/internal/adapter/api/controller"
)

// SetupWebhookRoutes registers the WhatsApp Cloud API endpoints
func SetupWebhookRoutes(router *gin.RouterGroup, webhookController *controller.WebhookController) {
	webhookRouter := router.Group("/webhook")
	{
		webhookRouter.GET("", webhookController.Verify)
		webhookRouter.POST("", webhookController.Receive)
	}
}
