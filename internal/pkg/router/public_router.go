package router

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"

	"github.com/glowfit/glowfit/app/controllers"
)

type PublicRouter struct {
	deps Dependencies
}

func NewPublicRouter(deps Dependencies) *PublicRouter {
	return &PublicRouter{deps: deps}
}

func (r PublicRouter) InstallRouter(app *fiber.App) {
	if r.deps.DocsFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: r.deps.DocsFile,
			Path:     "v1",
			Title:    "Glowfit webhook API",
		}))
	}

	app.Get("/healthz", controllers.NewHealthHandler(r.deps.Ping))

	// All methods reach the handler: it answers preflight and 405 itself.
	webhook := r.deps.Webhook
	if webhook.Counter == nil {
		webhook.Counter = r.deps.Counter
	}
	app.All(WebhookPath, controllers.NewHotmartWebhookHandler(webhook))
}
