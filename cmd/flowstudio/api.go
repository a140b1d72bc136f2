package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/store"
	"github.com/dukex/flowstudio/pkg/validation"
	"github.com/dukex/flowstudio/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	handlers *web.APIHandlers
}

func NewAPI(
	logger *slog.Logger,
	documentService *services.Documents,
	registry *documents.Registry,
	notifications *notification.Center,
	adapter *validation.Adapter,
	sessions *store.Sessions,
	persistence persistence.Persistence,
	validate *validator.Validate,
) *API {
	return &API{
		logger:   logger,
		handlers: web.NewAPIHandlers(documentService, registry, notifications, adapter, sessions, persistence, validate),
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowstudio API")
	})

	a.handlers.Register(app.Group("/api/v1"))

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
