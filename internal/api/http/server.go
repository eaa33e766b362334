package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/observability"
)

// NewApp builds the fiber app with the global middlewares attached. Routes are
// registered separately with RegisterRoutes.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
		BodyLimit:             64 * 1024,
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	return app
}
