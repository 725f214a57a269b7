package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vastrahub/vastrahub/app/controllers"
)

// WebhookRouter exposes the provider-facing ingestion endpoint. It is
// deliberately not rate limited: the provider's retry storms must always
// reach the dedup layer and be acknowledged, never bounced at the edge.
type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post("/payment/webhook/:provider", controllers.HandlePaymentWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
