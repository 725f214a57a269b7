package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vastrahub/vastrahub/app/repository"
	"github.com/vastrahub/vastrahub/internal/pkg/cache"
	"github.com/vastrahub/vastrahub/internal/pkg/checkout"
	"github.com/vastrahub/vastrahub/internal/pkg/database"
	"github.com/vastrahub/vastrahub/internal/pkg/env"
	"github.com/vastrahub/vastrahub/internal/pkg/payment"
	"github.com/vastrahub/vastrahub/internal/pkg/reconcile"
	"github.com/vastrahub/vastrahub/internal/pkg/router"
	"github.com/vastrahub/vastrahub/internal/pkg/stock"
	"github.com/vastrahub/vastrahub/internal/pkg/sweeper"
)

func main() {
	app := NewApplication()

	// Graceful shutdown: stop the sweeper before the HTTP server goes away.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		sweeper.GetManager().Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	startSweeper()

	app := fiber.New(fiber.Config{
		AppName: "vastrahub",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	return app
}

func startSweeper() {
	repos := repository.GetGlobalRepositories()
	ledger := stock.NewLedger(repos.Stock)
	ttl := time.Duration(env.GetEnvInt("RESERVATION_TTL_MINUTES", 15)) * time.Minute
	manager := checkout.NewManager(repos.Order, repos.Checkout, ledger, ttl)

	queue := reconcile.NewQueue()
	coordinator := payment.NewCoordinator(
		repos.Webhook,
		repos.Order,
		manager,
		payment.AmountGuard{CeilingPaise: int64(env.GetEnvInt("FRAUD_AMOUNT_CEILING_PAISE", 10_000_000))},
		env.GetEnv("PAYMENT_SALT_KEY", ""),
		env.GetEnv("PAYMENT_SALT_INDEX", "1"),
		queue,
	)
	drainer := reconcile.NewDrainer(queue, repos.Webhook, coordinator)

	interval := time.Duration(env.GetEnvInt("SWEEPER_INTERVAL_SECONDS", 60)) * time.Second
	sweeper.Initialize(manager, repos.Checkout, drainer, interval).Start()
}
