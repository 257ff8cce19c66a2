package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
)

// Subscription is the single entitlement row per user. It is created at signup
// and afterwards only mutated by the purchase webhook.
//
// ExpiresAt is nil while an activation has no known end. On deactivation it is
// set to the moment the entitlement ended.
type Subscription struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Status            string     `gorm:"type:varchar(16);not null;default:'inactive';index:idx_subscriptions_tx_status,priority:2" json:"status"`
	ActivatedAt       *time.Time `gorm:"type:timestamp;default:null" json:"activated_at,omitempty"`
	ExpiresAt         *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	LastTransactionID string     `gorm:"type:varchar(255);not null;default:'';index:idx_subscriptions_tx_status,priority:1" json:"last_transaction_id"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the stored status is active. It does not look at ExpiresAt;
// see the entitlements package for the access decision.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// HasAppliedTransaction reports whether txID is the transaction that produced the
// current active state.
func (s *Subscription) HasAppliedTransaction(txID string) bool {
	return s.IsActive() && txID != "" && s.LastTransactionID == txID
}
