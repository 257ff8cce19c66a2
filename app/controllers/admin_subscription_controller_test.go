package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glowfit/glowfit/app/models"
	"github.com/glowfit/glowfit/internal/pkg/billing"
	"github.com/glowfit/glowfit/internal/pkg/metrics/counter"
)

type stubLookup struct {
	user    *models.User
	userErr error
	sub     *models.Subscription
	subErr  error
}

func (s *stubLookup) ResolveUser(context.Context, string) (*models.User, error) {
	return s.user, s.userErr
}

func (s *stubLookup) GetSubscription(context.Context, uint) (*models.Subscription, error) {
	return s.sub, s.subErr
}

func getJSON(t *testing.T, app *fiber.App, target string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestAdminSubscriptionLookup(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	activated := now.Add(-time.Hour)
	lookup := &stubLookup{
		user: &models.User{ID: 7, Email: "maria@example.com", Status: models.STATUS_ACTIVE},
		sub: &models.Subscription{
			UserID:            7,
			Status:            models.SubscriptionStatusActive,
			ActivatedAt:       &activated,
			LastTransactionID: "HP-1001",
			UpdatedAt:         activated,
		},
	}
	app := fiber.New()
	app.Get("/admin/subscriptions", NewAdminSubscriptionHandler(lookup, func() time.Time { return now }))

	status, body := getJSON(t, app, "/admin/subscriptions?email=maria@example.com")

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["premium"])
	assert.Equal(t, "premium", body["effective_plan"])
	sub, ok := body["subscription"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "HP-1001", sub["last_transaction_id"])
	assert.Equal(t, activated.Format(time.RFC3339), sub["activated_at"])
	assert.Nil(t, sub["expires_at"])
}

func TestAdminSubscriptionLookup_NoRow(t *testing.T) {
	lookup := &stubLookup{
		user:   &models.User{ID: 7, Email: "maria@example.com"},
		subErr: gorm.ErrRecordNotFound,
	}
	app := fiber.New()
	app.Get("/admin/subscriptions", NewAdminSubscriptionHandler(lookup, nil))

	status, body := getJSON(t, app, "/admin/subscriptions?email=maria@example.com")

	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, body["subscription"])
	assert.Equal(t, false, body["premium"])
}

func TestAdminSubscriptionLookup_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		lookup *stubLookup
		status int
	}{
		{name: "missing email", target: "/admin/subscriptions", lookup: &stubLookup{}, status: fiber.StatusBadRequest},
		{name: "unknown user", target: "/admin/subscriptions?email=ghost@example.com", lookup: &stubLookup{userErr: billing.ErrUserNotFound}, status: fiber.StatusNotFound},
		{name: "directory down", target: "/admin/subscriptions?email=maria@example.com", lookup: &stubLookup{userErr: errors.New("user lookup: timeout")}, status: fiber.StatusInternalServerError},
		{name: "store down", target: "/admin/subscriptions?email=maria@example.com", lookup: &stubLookup{user: &models.User{ID: 1}, subErr: errors.New("bad connection")}, status: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/admin/subscriptions", NewAdminSubscriptionHandler(tt.lookup, nil))

			status, body := getJSON(t, app, tt.target)

			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", NewHealthHandler(nil))
	app.Get("/healthz/db", NewHealthHandler(func(context.Context) error { return errors.New("down") }))

	status, body := getJSON(t, app, "/healthz")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = getJSON(t, app, "/healthz/db")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body["status"])
}

func TestWebhookStatsHandler(t *testing.T) {
	rec := counter.NewMemoryCounter()
	_ = rec.Add(context.Background(), "200")
	_ = rec.Add(context.Background(), "429")
	_ = rec.Add(context.Background(), "429")

	app := fiber.New()
	app.Get("/admin/webhook-stats", NewWebhookStatsHandler(rec))

	status, body := getJSON(t, app, "/admin/webhook-stats")
	require.Equal(t, fiber.StatusOK, status)
	responses, ok := body["responses"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), responses["200"])
	assert.Equal(t, float64(2), responses["429"])
}
