package repository

import (
	"context"
	"time"

	"github.com/glowfit/glowfit/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindActiveByTransactionID(ctx context.Context, transactionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("last_transaction_id = ? AND status = ?", transactionID, models.SubscriptionStatusActive).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActivateByUserID is a conditional write: rows that are already active for the
// same transaction are left untouched, so two concurrent replays apply at most once.
func (r *subscriptionRepository) ActivateByUserID(ctx context.Context, userID uint, transactionID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Where("NOT (status = ? AND last_transaction_id = ?)", models.SubscriptionStatusActive, transactionID).
		Updates(map[string]interface{}{
			"status":              models.SubscriptionStatusActive,
			"activated_at":        at,
			"last_transaction_id": transactionID,
			"expires_at":          nil,
			"updated_at":          at,
		})
	return res.RowsAffected, res.Error
}

func (r *subscriptionRepository) DeactivateByUserID(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusInactive,
			"expires_at": at,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}
