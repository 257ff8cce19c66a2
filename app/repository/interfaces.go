package repository

import (
	"context"
	"time"

	"github.com/glowfit/glowfit/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the identity directory lookups used by the webhook and admin tools.
// Rows are written by the auth service, never here.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SubscriptionRepository defines the per-user subscription row operations.
// Every write touches exactly one row, selected by user_id.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Subscription, error)
	FindActiveByTransactionID(ctx context.Context, transactionID string) (*models.Subscription, error)
	ActivateByUserID(ctx context.Context, userID uint, transactionID string, at time.Time) (int64, error)
	DeactivateByUserID(ctx context.Context, userID uint, at time.Time) (int64, error)
}

// Repositories bundles all repositories backed by the same database handle.
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates all repositories for the given DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
