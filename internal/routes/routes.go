package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kunal-ak23/university-tracker-sub000/internal/config"
	"github.com/kunal-ak23/university-tracker-sub000/internal/events"
	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
	"github.com/kunal-ak23/university-tracker-sub000/internal/middleware"
	"github.com/kunal-ak23/university-tracker-sub000/internal/notification"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// Deps aggregates shared dependencies required to wire routes. The engine
// components are constructed by main so the HTTP surface and the Kafka
// consumer share the same stores.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	Sources  source.Repository
	Store    ledger.Store
	Service  *ledger.Service
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	handler := events.NewHandler(d.Sources, d.Service, d.Logger)
	eventsGroup := api.Group("/events")
	if d.Cache != nil {
		eventsGroup.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterEventRoutes(eventsGroup, handler)

	RegisterLedgerRoutes(api, d.Store)

	// Maintenance operations get a structured audit trail on top of the
	// plain access log.
	admin := api.Group("/admin", middleware.AdminToken(d.Cfg.AdminToken), middleware.Audit(d.Logger))
	RegisterAdminRoutes(admin, d)

	return nil
}
