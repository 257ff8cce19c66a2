package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/glowfit/glowfit/internal/pkg/billing"
	"github.com/glowfit/glowfit/internal/pkg/logger"
	"github.com/glowfit/glowfit/internal/pkg/metrics/counter"
	"github.com/glowfit/glowfit/internal/pkg/ratelimit"
)

const defaultWebhookTimeout = 15 * time.Second

// PurchaseEventProcessor applies a validated purchase event.
type PurchaseEventProcessor interface {
	ProcessPurchaseEvent(ctx context.Context, ev billing.PurchaseEvent) (billing.Outcome, error)
}

// HotmartWebhookConfig wires the collaborators of the purchase webhook.
type HotmartWebhookConfig struct {
	Processor PurchaseEventProcessor
	Limiter   ratelimit.Limiter
	// Secret returns the configured hottok. It is read on every request so a
	// missing value is reported to the caller instead of failing at startup.
	Secret  func() string
	Logger  *zap.Logger
	Timeout time.Duration
	// Counter, when set, counts responses of the POST pipeline by status code.
	Counter counter.Recorder
}

// NewHotmartWebhookHandler returns the handler for the Hotmart purchase webhook.
// Mount it with app.All so preflight and wrong methods reach it.
func NewHotmartWebhookHandler(cfg HotmartWebhookConfig) fiber.Handler {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewMemoryLimiter(nil, ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	}
	if cfg.Secret == nil {
		cfg.Secret = func() string { return "" }
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.L()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWebhookTimeout
	}

	return func(c *fiber.Ctx) error {
		SetCORSHeaders(c)

		switch c.Method() {
		case fiber.MethodOptions:
			return c.Status(fiber.StatusOK).Send(nil)
		case fiber.MethodPost:
		default:
			return jsonError(c, fiber.StatusMethodNotAllowed, "Method not allowed")
		}

		err := servePurchaseEvent(c, cfg)
		if cfg.Counter != nil {
			if cerr := cfg.Counter.Add(c.UserContext(), counter.StatusLabel(c.Response().StatusCode())); cerr != nil {
				cfg.Logger.Debug("failed to count webhook response", zap.Error(cerr))
			}
		}
		return err
	}
}

// servePurchaseEvent runs the POST pipeline: rate limit, decode, validate,
// authorize, process.
func servePurchaseEvent(c *fiber.Ctx, cfg HotmartWebhookConfig) error {
	clientKey := ratelimit.ClientKey(c.Get(fiber.HeaderXForwardedFor))
	log := cfg.Logger.With(
		zap.String("client_ip", clientKey),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)

	ctx, cancel := context.WithTimeout(c.UserContext(), cfg.Timeout)
	defer cancel()

	allowed, err := cfg.Limiter.Allow(ctx, clientKey)
	if err != nil {
		log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
	}
	if !allowed {
		log.Warn("rate limit exceeded")
		return jsonError(c, fiber.StatusTooManyRequests, "Too many requests")
	}

	var body interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		log.Warn("malformed webhook body", zap.Error(err))
		return jsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}

	ev, err := billing.ValidatePurchasePayload(body)
	if err != nil {
		var vErr *billing.ValidationError
		if errors.As(err, &vErr) {
			log.Info("webhook payload rejected", zap.String("field", vErr.Field))
			return jsonError(c, fiber.StatusBadRequest, vErr.Message)
		}
		return jsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}

	log = log.With(
		zap.String("event", string(ev.EventType)),
		zap.String("transaction_id", ev.TransactionID),
	)

	if err := billing.VerifyHottok(ev.SharedSecret, cfg.Secret()); err != nil {
		if errors.Is(err, billing.ErrSecretNotConfigured) {
			log.Error("webhook secret is not configured")
			return jsonError(c, fiber.StatusInternalServerError, "Server configuration error")
		}
		log.Warn("invalid hottok received")
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	outcome, err := cfg.Processor.ProcessPurchaseEvent(ctx, ev)
	if err != nil {
		return processErrorResponse(c, log, err)
	}

	log.Info("purchase event processed", zap.Stringer("outcome", outcome))
	if outcome == billing.OutcomeAlreadyProcessed {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Already processed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "OK"})
}

func processErrorResponse(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, billing.ErrUserNotFound):
		log.Warn("no user for buyer email")
		return jsonError(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, billing.ErrActivateFailed):
		log.Error("activation failed", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Failed to activate")
	case errors.Is(err, billing.ErrDeactivateFailed):
		log.Error("deactivation failed", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Failed to deactivate")
	default:
		log.Error("processing purchase event failed", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Internal server error")
	}
}
