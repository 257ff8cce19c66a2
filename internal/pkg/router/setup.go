package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/glowfit/glowfit/app/controllers"
	"github.com/glowfit/glowfit/internal/pkg/metrics/counter"
)

const WebhookPath = "/webhooks/hotmart"

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the collaborators the HTTP routes are built from.
type Dependencies struct {
	Webhook controllers.HotmartWebhookConfig
	Lookup  controllers.SubscriptionLookup
	Ping    func(ctx context.Context) error
	Counter counter.Recorder

	AdminUser         string
	AdminPasswordHash string
	// AdminStorage backs the admin limiter. Nil keeps counters in memory.
	AdminStorage    fiber.Storage
	AdminMax        int
	AdminExpiration time.Duration

	// DocsFile is the OpenAPI document served under /docs/api. Empty disables it.
	DocsFile string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewPublicRouter(deps), NewAdminRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
