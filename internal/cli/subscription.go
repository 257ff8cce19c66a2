package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/glowfit/glowfit/app/models"
	"github.com/glowfit/glowfit/internal/pkg/billing"
	"github.com/glowfit/glowfit/internal/pkg/entitlements"
)

func newSubscriptionCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Short:   "Manage subscriptions",
		Aliases: []string{"sub"},
	}
	cmd.AddCommand(newStatusCmd(load), newGrantCmd(load), newRevokeCmd(load))
	return cmd
}

func newStatusCmd(load Loader) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's subscription",
		Long: `Display the subscription row and entitlement of the user owning an email.

Examples:
  glowfitctl subscription status --email maria@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := loadAdmin(load)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			user, err := admin.ResolveUser(ctx, email)
			if err != nil {
				return fmt.Errorf("failed to find user: %w", err)
			}

			sub, err := admin.GetSubscription(ctx, user.ID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				sub = nil
			} else if err != nil {
				return fmt.Errorf("failed to load subscription: %w", err)
			}

			printStatus(cmd.OutOrStdout(), user, sub, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "buyer email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newGrantCmd(load Loader) *cobra.Command {
	var email, tx string

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Activate a user's subscription",
		Long: `Run the activation transition for a user, as if an approved purchase arrived.

Examples:
  glowfitctl subscription grant --email maria@example.com
  glowfitctl subscription grant --email maria@example.com --transaction HP-1234567`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, load, billing.EventPurchaseApproved, email, tx)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "buyer email")
	cmd.Flags().StringVar(&tx, "transaction", "", "transaction id to record (default: generated)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRevokeCmd(load Loader) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Deactivate a user's subscription",
		Long: `Run the deactivation transition for a user, as if the purchase was canceled.

Examples:
  glowfitctl subscription revoke --email maria@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, load, billing.EventPurchaseCanceled, email, "")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "buyer email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runTransition(cmd *cobra.Command, load Loader, event billing.EventType, email, tx string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	tx = strings.TrimSpace(tx)
	if tx == "" {
		tx = "manual-" + uuid.NewString()
	}

	admin, err := loadAdmin(load)
	if err != nil {
		return err
	}

	outcome, err := admin.ProcessPurchaseEvent(cmd.Context(), billing.PurchaseEvent{
		EventType:     event,
		BuyerEmail:    email,
		TransactionID: tx,
	})
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", event, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s for %s: %s (transaction %s)\n", event, email, outcome, tx)
	return nil
}

func printStatus(w io.Writer, user *models.User, sub *models.Subscription, now time.Time) {
	fmt.Fprintf(w, "User: %d <%s>\n", user.ID, user.Email)
	if sub == nil {
		fmt.Fprintln(w, "  Subscription: none")
		return
	}
	fmt.Fprintf(w, "  Status:      %s\n", sub.Status)
	fmt.Fprintf(w, "  Plan:        %s\n", entitlements.EffectivePlan(sub, now))
	if sub.LastTransactionID != "" {
		fmt.Fprintf(w, "  Transaction: %s\n", sub.LastTransactionID)
	}
	if sub.ActivatedAt != nil {
		fmt.Fprintf(w, "  Activated:   %s\n", sub.ActivatedAt.Format("2006-01-02 15:04"))
	}
	if sub.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires:     %s\n", sub.ExpiresAt.Format("2006-01-02 15:04"))
	}
}
