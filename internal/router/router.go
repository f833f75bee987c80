package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/config"
	"github.com/ahmedsarwar7575/naati-speaking-api/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MockTestHandler    *handler.MockTestHandler
	SessionTimeHandler *handler.SessionTimeHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MockTestHandler != nil {
		mockTests := app.Group("/api/v2/mock-tests", jwtMiddleware)
		deps.MockTestHandler.Register(mockTests)

		if deps.SessionTimeHandler != nil {
			deps.SessionTimeHandler.Register(mockTests)
		}
	}
}
