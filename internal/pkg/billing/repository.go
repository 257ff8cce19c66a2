package billing

import (
	"context"
	"time"

	"github.com/glowfit/glowfit/app/models"
)

// UserDirectory resolves a buyer to a local user. A missing user is reported
// as gorm.ErrRecordNotFound.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SubscriptionStore provides single-row reads and writes on the subscription table.
type SubscriptionStore interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Subscription, error)
	FindActiveByTransactionID(ctx context.Context, transactionID string) (*models.Subscription, error)
	ActivateByUserID(ctx context.Context, userID uint, transactionID string, at time.Time) (int64, error)
	DeactivateByUserID(ctx context.Context, userID uint, at time.Time) (int64, error)
}
