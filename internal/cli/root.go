package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glowfit/glowfit/app/models"
	"github.com/glowfit/glowfit/internal/pkg/billing"
)

// SubscriptionAdmin is the part of the billing service support tooling needs.
type SubscriptionAdmin interface {
	ResolveUser(ctx context.Context, email string) (*models.User, error)
	GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
	ProcessPurchaseEvent(ctx context.Context, ev billing.PurchaseEvent) (billing.Outcome, error)
}

// Loader connects to the backing stores. It runs only when a command that needs
// them is executed, so --help works without a database.
type Loader func() (SubscriptionAdmin, error)

// NewRootCmd builds the glowfitctl command tree.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "glowfitctl",
		Short:         "Glowfit support tooling",
		Long:          `Inspect and correct subscription records without going through the purchase webhook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSubscriptionCmd(load), newAdminCmd())
	return root
}

func loadAdmin(load Loader) (SubscriptionAdmin, error) {
	if load == nil {
		return nil, fmt.Errorf("application not initialized - database connection required")
	}
	admin, err := load()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return admin, nil
}
