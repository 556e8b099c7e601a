// Package main provides the Zapflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/maqel/zapflow/pkg/admission"
	"github.com/maqel/zapflow/pkg/eventbus"
	"github.com/maqel/zapflow/pkg/persistence"
	"github.com/maqel/zapflow/pkg/registry"
	"github.com/maqel/zapflow/pkg/services"
	"github.com/maqel/zapflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	flowService := services.NewFlow(a.persistence, a.eventBus, a.logger)
	graphService := services.NewGraph(a.persistence, a.eventBus, a.logger)

	admissionManager := admission.NewManager(
		a.persistence.FlowRepository(),
		a.persistence.ActivationRepository(),
		a.logger,
		a.tracer,
	)
	contactService := services.NewContact(admissionManager, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(flowService, graphService, contactService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Zapflow API")
	})

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.RenameFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Get("/:id/validate", handlers.ValidateFlow)
	f.Post("/:id/activate", handlers.ActivateFlow)

	// Graph mutation endpoints:
	f.Post("/:id/nodes", handlers.CreateNode)
	f.Patch("/:id/nodes/:nodeId/config", handlers.UpdateNodeConfig)
	f.Put("/:id/nodes/:nodeId/kind", handlers.ChangeNodeKind)
	f.Patch("/:id/nodes/:nodeId/position", handlers.MoveNode)
	f.Delete("/:id/nodes/:nodeId", handlers.DeleteNode)
	f.Post("/:id/edges", handlers.CreateEdge)
	f.Delete("/:id/edges/:edgeId", handlers.DeleteEdge)

	// Contact admission endpoints:
	f.Get("/:id/contacts", handlers.ListContacts)
	f.Post("/:id/contacts/admit", handlers.AdmitContact)
	f.Post("/:id/contacts/advance", handlers.AdvanceContact)
	f.Delete("/:id/contacts", handlers.ClearContacts)

	app.Get("/node-kinds", handlers.GetNodeKinds)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
