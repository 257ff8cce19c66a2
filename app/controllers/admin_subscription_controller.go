package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/glowfit/glowfit/app/models"
	"github.com/glowfit/glowfit/internal/pkg/billing"
	"github.com/glowfit/glowfit/internal/pkg/entitlements"
	"github.com/glowfit/glowfit/internal/pkg/metrics/counter"
)

// SubscriptionLookup reads a user's subscription for support tooling.
type SubscriptionLookup interface {
	ResolveUser(ctx context.Context, email string) (*models.User, error)
	GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
}

// NewAdminSubscriptionHandler answers GET /admin/subscriptions?email=.
func NewAdminSubscriptionHandler(lookup SubscriptionLookup, now func() time.Time) fiber.Handler {
	if now == nil {
		now = time.Now
	}

	return func(c *fiber.Ctx) error {
		email := strings.TrimSpace(c.Query("email"))
		if email == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "email query parameter is required"})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
		defer cancel()

		user, err := lookup.ResolveUser(ctx, email)
		if err != nil {
			if errors.Is(err, billing.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
		}

		sub, err := lookup.GetSubscription(ctx, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load subscription"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = nil
		}

		at := now()
		response := fiber.Map{
			"user": fiber.Map{
				"id":     user.ID,
				"email":  user.Email,
				"status": user.Status,
			},
			"subscription":   nil,
			"premium":        entitlements.HasPremiumAccess(sub, at),
			"effective_plan": entitlements.EffectivePlan(sub, at),
		}
		if sub != nil {
			response["subscription"] = fiber.Map{
				"status":              sub.Status,
				"activated_at":        formatTimePtr(sub.ActivatedAt),
				"expires_at":          formatTimePtr(sub.ExpiresAt),
				"last_transaction_id": sub.LastTransactionID,
				"updated_at":          sub.UpdatedAt.UTC().Format(time.RFC3339),
			}
		}

		return c.JSON(response)
	}
}

// NewHealthHandler answers GET /healthz. ping is optional and checks the database.
func NewHealthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// NewWebhookStatsHandler answers GET /admin/webhook-stats with response counts
// per status code.
func NewWebhookStatsHandler(rec counter.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		counts, err := rec.Snapshot(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load counters"})
		}
		return c.JSON(fiber.Map{"responses": counts})
	}
}
