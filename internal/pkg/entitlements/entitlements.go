package entitlements

import (
	"time"

	"github.com/glowfit/glowfit/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// HasPremiumAccess reports whether the subscription currently unlocks premium
// content. An active row without expiry has no known end; an expiry in the past
// revokes access even if the status was never flipped.
func HasPremiumAccess(sub *models.Subscription, now time.Time) bool {
	if !sub.IsActive() {
		return false
	}
	return sub.ExpiresAt == nil || sub.ExpiresAt.After(now)
}

// EffectivePlan maps a subscription to the plan shown to the user.
func EffectivePlan(sub *models.Subscription, now time.Time) Plan {
	if HasPremiumAccess(sub, now) {
		return PlanPremium
	}
	return PlanFree
}
