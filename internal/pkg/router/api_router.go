package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/vastrahub/vastrahub/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	api.Get("/orders/:orderId/status", controllers.HandleGetOrderStatus)
	api.Get("/products/:productId/stock", controllers.HandleGetProductStock)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
