package billing

// EventType is a Hotmart purchase lifecycle notification name.
type EventType string

const (
	EventPurchaseApproved         EventType = "PURCHASE_APPROVED"
	EventPurchaseComplete         EventType = "PURCHASE_COMPLETE"
	EventPurchaseRefunded         EventType = "PURCHASE_REFUNDED"
	EventPurchaseCanceled         EventType = "PURCHASE_CANCELED"
	EventSubscriptionCancellation EventType = "SUBSCRIPTION_CANCELLATION"
)

// IsActivation reports whether the event grants the entitlement.
func (e EventType) IsActivation() bool {
	return e == EventPurchaseApproved || e == EventPurchaseComplete
}

// IsDeactivation reports whether the event revokes the entitlement.
func (e EventType) IsDeactivation() bool {
	switch e {
	case EventPurchaseRefunded, EventPurchaseCanceled, EventSubscriptionCancellation:
		return true
	default:
		return false
	}
}

// PurchaseEvent is a validated and normalized webhook notification.
type PurchaseEvent struct {
	SharedSecret  string
	EventType     EventType
	BuyerEmail    string
	TransactionID string
}

// Outcome describes what processing an event did to the subscription store.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyProcessed
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyProcessed:
		return "already_processed"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}
