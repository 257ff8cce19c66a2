package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/glowfit/glowfit/app/controllers"
	"github.com/glowfit/glowfit/internal/pkg/middleware"
)

type AdminRouter struct {
	deps Dependencies
}

func NewAdminRouter(deps Dependencies) *AdminRouter {
	if deps.AdminMax <= 0 {
		deps.AdminMax = 20
	}
	if deps.AdminExpiration <= 0 {
		deps.AdminExpiration = time.Minute
	}
	return &AdminRouter{deps: deps}
}

func (r AdminRouter) InstallRouter(app *fiber.App) {
	auth := middleware.RequireAdmin(r.deps.AdminUser, r.deps.AdminPasswordHash)
	throttle := middleware.AdminRateLimit(r.deps.AdminStorage, r.deps.AdminMax, r.deps.AdminExpiration)

	// fiber metrics
	app.Get("/metrics", throttle, auth, monitor.New())

	adminGroup := app.Group("/admin", throttle, auth)
	if r.deps.Lookup != nil {
		adminGroup.Get("/subscriptions", controllers.NewAdminSubscriptionHandler(r.deps.Lookup, nil))
	}
	if r.deps.Counter != nil {
		adminGroup.Get("/webhook-stats", controllers.NewWebhookStatsHandler(r.deps.Counter))
	}
}
