package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
)

// ServerOptions configures the fiber app.
type ServerOptions struct {
	Name           string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewServer builds a fiber app with global middlewares and routes attached.
func NewServer(opts ServerOptions, routes RouteConfig) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             1 << 20,
		ErrorHandler:          fiberErrorHandler(logger, opts.Metrics),
	})
	RegisterMiddlewares(app, logger, opts.Metrics, opts.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
