package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nuansasolution/portal/internal/config"
	"github.com/nuansasolution/portal/internal/handler"
	"github.com/nuansasolution/portal/internal/infrastructure/snap"
	"github.com/nuansasolution/portal/internal/middleware"
	"github.com/nuansasolution/portal/internal/repository"
	"github.com/nuansasolution/portal/internal/service"
	"github.com/nuansasolution/portal/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	RedisClient *redis.Client
	Backend     service.Backend
	Gateway     snap.Gateway
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	quoteStore := repository.NewRedisQuoteStore(deps.RedisClient)

	// Initialize services
	pricing := service.NewPricing()
	orchestrator := service.NewOrchestrator(deps.Backend, deps.Gateway, service.OrchestratorConfig{
		VerifyDelay:  deps.Config.Payment.VerifyDelay,
		PollInterval: deps.Config.Payment.PollInterval,
	})
	entitlement := service.NewEntitlement(deps.Backend, pricing)
	invoice := service.NewInvoice(pricing)

	// Initialize handlers
	checkoutHandler := handler.NewCheckoutHandler(pricing, orchestrator, quoteStore, deps.Config.Payment.QuoteTTL)
	paymentHandler := handler.NewPaymentHandler(orchestrator, deps.Gateway)
	profileHandler := handler.NewProfileHandler(deps.Backend, entitlement, invoice)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Nuansa Solution Portal API",
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(telemetry.FiberMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "nuansa-portal",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Catalog and quoting (public; quote attaches the session when present)
	v1.Get("/packages", checkoutHandler.ListPackages)
	v1.Post("/checkout/quote",
		middleware.OptionalPortalToken(deps.Config.Auth.JWTSecret),
		checkoutHandler.Quote)

	// Checkout (authenticated, idempotent by X-Correlation-ID)
	checkout := v1.Group("/checkout")
	checkout.Use(middleware.VerifyPortalToken(deps.Config.Auth.JWTSecret))
	checkout.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Config.Payment.IdempotencyTTL))
	checkout.Post("/pay", checkoutHandler.Pay)

	// Payment lifecycle
	payments := v1.Group("/payments")
	payments.Use(middleware.VerifyPortalToken(deps.Config.Auth.JWTSecret))
	payments.Post("/open/:order_id", paymentHandler.Open)
	payments.Post("/outcome/:order_id", paymentHandler.Outcome)
	payments.Get("/status/:order_id", paymentHandler.GetStatus)
	payments.Post("/resume/:order_id", paymentHandler.Resume)
	payments.Post("/cancel/:order_id", paymentHandler.Cancel)

	// Account pages
	me := v1.Group("/me")
	me.Use(middleware.VerifyPortalToken(deps.Config.Auth.JWTSecret))
	me.Get("/profile", profileHandler.GetProfile)
	me.Get("/access", profileHandler.GetAccess)
	me.Get("/orders/:order_id/invoice", profileHandler.GetInvoice)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
