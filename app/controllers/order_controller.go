package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vastrahub/vastrahub/app/repository"
)

// HandleGetOrderStatus is the polling endpoint the storefront uses while a
// payment is in flight: none of the webhook subsystem's failures are shown
// to the shopper, they just see the order still pending.
func HandleGetOrderStatus(c *fiber.Ctx) error {
	orderID := strings.TrimSpace(c.Params("orderId"))
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order_id_missing"})
	}

	order, err := repository.GetGlobalRepositories().Order.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"order_id":           order.OrderID,
		"status":             order.Status,
		"payment_status":     order.PaymentStatus,
		"total_amount_paise": order.TotalAmountPaise,
		"paid_at":            order.PaidAt,
	})
}

// HandleGetProductStock reports per-size availability for the storefront.
func HandleGetProductStock(c *fiber.Ctx) error {
	productID, err := strconv.ParseUint(c.Params("productId"), 10, 32)
	if err != nil || productID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_product_id"})
	}

	stocks, err := repository.GetGlobalRepositories().Stock.ListByProduct(uint(productID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stock_lookup_failed"})
	}

	sizes := make([]fiber.Map, 0, len(stocks))
	for _, s := range stocks {
		sizes = append(sizes, fiber.Map{
			"size":      s.Size,
			"available": s.AvailableStock(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"product_id": productID,
		"sizes":      sizes,
	})
}
