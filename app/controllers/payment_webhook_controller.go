package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vastrahub/vastrahub/app/repository"
	"github.com/vastrahub/vastrahub/internal/pkg/checkout"
	"github.com/vastrahub/vastrahub/internal/pkg/env"
	"github.com/vastrahub/vastrahub/internal/pkg/payment"
	"github.com/vastrahub/vastrahub/internal/pkg/reconcile"
	"github.com/vastrahub/vastrahub/internal/pkg/stock"
)

// ProviderPhonePe is the only payment provider currently wired.
const ProviderPhonePe = "phonepe"

const webhookTimeout = 15 * time.Second

// HandlePaymentWebhook ingests one provider delivery. The HTTP status is an
// acknowledgement channel only: anything structurally sound gets 200 with
// {success, message, retryable}, including rejected and duplicate deliveries,
// so the provider does not retry cases where retrying cannot help. 400/401
// are reserved for requests that are malformed at the transport level.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	if provider != ProviderPhonePe {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_provider"})
	}

	signature := strings.TrimSpace(c.Get("X-Verify"))
	if signature == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing_signature"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)

	coordinator := buildCoordinator()
	// The deadline reaches the Redis queue operations. The repository layer
	// takes no context; its statements are bounded by the MySQL driver's
	// read/write timeouts instead.
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	result := coordinator.Process(ctx, provider, rawBody, signature)
	return c.Status(fiber.StatusOK).JSON(result)
}

func buildCoordinator() *payment.Coordinator {
	repos := repository.GetGlobalRepositories()
	ledger := stock.NewLedger(repos.Stock)
	ttl := time.Duration(env.GetEnvInt("RESERVATION_TTL_MINUTES", 15)) * time.Minute
	manager := checkout.NewManager(repos.Order, repos.Checkout, ledger, ttl)

	return payment.NewCoordinator(
		repos.Webhook,
		repos.Order,
		manager,
		payment.AmountGuard{CeilingPaise: int64(env.GetEnvInt("FRAUD_AMOUNT_CEILING_PAISE", 10_000_000))},
		env.GetEnv("PAYMENT_SALT_KEY", ""),
		env.GetEnv("PAYMENT_SALT_INDEX", "1"),
		reconcile.NewQueue(),
	)
}
