package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"ramses-exporter/internal/config"
	"ramses-exporter/internal/dispatch"
	"ramses-exporter/internal/metrics"
)

// Server represents the HTTP server with all configured routes and middleware.
type Server struct {
	app        *fiber.App
	config     *config.ServerConfig
	logger     *slog.Logger
	registry   *metrics.Registry
	dispatcher *dispatch.Dispatcher
}

// ServerDeps contains all dependencies required to create a new Server.
type ServerDeps struct {
	Config     *config.ServerConfig
	Logger     *slog.Logger
	Registry   *metrics.Registry
	Dispatcher *dispatch.Dispatcher
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	s := &Server{
		app:        app,
		config:     deps.Config,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware to handle panics
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware for tracing
	s.app.Use(requestid.New())

	// Logger middleware for request logging
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// registerRoutes sets up all routes.
func (s *Server) registerRoutes() {
	// Health check endpoint (outside versioned API)
	s.app.Get("/healthz", s.healthCheck)

	// Prometheus scrape endpoint, served from the exporter's own registry
	s.app.Get("/metrics", adaptor.HTTPHandler(s.registry.Handler()))

	// Read-only inspection API
	v1 := s.app.Group("/v1")
	v1.Get("/summary", s.summary)
	v1.Get("/names", s.names)
	v1.Get("/zones", s.zones)
}

// healthCheck returns the health status of the service.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return Success(c, map[string]string{
		"status": "healthy",
	})
}

// summary returns the in-process message tallies.
func (s *Server) summary(c *fiber.Ctx) error {
	return Success(c, fiber.Map{
		"message_types":         s.dispatcher.MessageTypeSummary(),
		"device_communications": s.dispatcher.DeviceCommunicationSummary(),
	})
}

// names returns the current name-cache snapshot.
func (s *Server) names(c *fiber.Ctx) error {
	return Success(c, s.dispatcher.Cache().Snapshot())
}

// zones returns the zone membership index.
func (s *Server) zones(c *fiber.Ctx) error {
	return Success(c, s.dispatcher.Zones().Snapshot())
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors returned from handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return Error(c, e.Code, ErrCodeInternalError, e.Message)
	}
	return InternalError(c, fmt.Sprintf("unexpected error: %v", err))
}
