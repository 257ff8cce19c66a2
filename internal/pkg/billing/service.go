package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowfit/glowfit/app/models"
	"github.com/glowfit/glowfit/app/repository"
	"github.com/glowfit/glowfit/internal/pkg/events"
	"github.com/glowfit/glowfit/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service applies validated purchase events to the subscription store.
type Service struct {
	users     UserDirectory
	subs      SubscriptionStore
	publisher events.Publisher
	now       func() time.Time
	log       *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPublisher sets the publisher notified after a subscription changed.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger. Defaults to the package global.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a billing service from injected collaborators.
func NewService(users UserDirectory, subs SubscriptionStore, opts ...Option) *Service {
	s := &Service{
		users:     users,
		subs:      subs,
		publisher: events.NopPublisher{},
		now:       time.Now,
		log:       logger.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, opts ...Option) *Service {
	repos := repository.NewRepositories(db)
	return NewService(repos.User, repos.Subscription, opts...)
}

// ResolveUser looks up the buyer by normalized email.
func (s *Service) ResolveUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetSubscription returns the subscription row of a user.
func (s *Service) GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	return s.subs.GetByUserID(ctx, userID)
}

// ProcessPurchaseEvent resolves the buyer and applies the state transition for
// the event type. Store failures are returned wrapped in ErrActivateFailed or
// ErrDeactivateFailed; nothing is retried here.
func (s *Service) ProcessPurchaseEvent(ctx context.Context, ev PurchaseEvent) (Outcome, error) {
	user, err := s.ResolveUser(ctx, ev.BuyerEmail)
	if err != nil {
		return OutcomeIgnored, err
	}

	switch {
	case ev.EventType.IsActivation():
		return s.activate(ctx, user.ID, ev)
	case ev.EventType.IsDeactivation():
		return s.deactivate(ctx, user.ID, ev)
	default:
		s.log.Info("ignoring unhandled purchase event",
			zap.String("event", string(ev.EventType)),
			zap.Uint("user_id", user.ID),
		)
		return OutcomeIgnored, nil
	}
}

func (s *Service) activate(ctx context.Context, userID uint, ev PurchaseEvent) (Outcome, error) {
	existing, err := s.subs.FindActiveByTransactionID(ctx, ev.TransactionID)
	switch {
	case err == nil && existing != nil:
		s.log.Info("purchase already processed",
			zap.Uint("user_id", userID),
			zap.String("transaction_id", ev.TransactionID),
		)
		return OutcomeAlreadyProcessed, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		// The conditional write below still refuses a double apply on this row.
		s.log.Warn("idempotency lookup failed",
			zap.String("transaction_id", ev.TransactionID),
			zap.Error(err),
		)
	}

	now := s.now().UTC()
	affected, err := s.subs.ActivateByUserID(ctx, userID, ev.TransactionID, now)
	if err != nil {
		s.log.Error("error updating subscription",
			zap.Uint("user_id", userID),
			zap.String("transaction_id", ev.TransactionID),
			zap.Error(err),
		)
		return OutcomeIgnored, fmt.Errorf("%w: %v", ErrActivateFailed, err)
	}

	if affected == 0 {
		current, err := s.subs.GetByUserID(ctx, userID)
		switch {
		case err == nil && current.HasAppliedTransaction(ev.TransactionID):
			return OutcomeAlreadyProcessed, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.log.Warn("no subscription row for user",
				zap.Uint("user_id", userID),
				zap.String("transaction_id", ev.TransactionID),
			)
			return OutcomeApplied, nil
		case err != nil:
			return OutcomeIgnored, fmt.Errorf("%w: %v", ErrActivateFailed, err)
		}
	}

	s.log.Info("subscription activated",
		zap.Uint("user_id", userID),
		zap.String("transaction_id", ev.TransactionID),
		zap.String("event", string(ev.EventType)),
	)
	s.publish(ctx, events.RoutingKeySubscriptionActivated, events.SubscriptionChanged{
		UserID:        userID,
		Status:        models.SubscriptionStatusActive,
		EventType:     string(ev.EventType),
		TransactionID: ev.TransactionID,
		OccurredAt:    now,
	})
	return OutcomeApplied, nil
}

func (s *Service) deactivate(ctx context.Context, userID uint, ev PurchaseEvent) (Outcome, error) {
	now := s.now().UTC()
	affected, err := s.subs.DeactivateByUserID(ctx, userID, now)
	if err != nil {
		s.log.Error("error deactivating subscription",
			zap.Uint("user_id", userID),
			zap.String("transaction_id", ev.TransactionID),
			zap.Error(err),
		)
		return OutcomeIgnored, fmt.Errorf("%w: %v", ErrDeactivateFailed, err)
	}
	if affected == 0 {
		s.log.Warn("no subscription row for user",
			zap.Uint("user_id", userID),
			zap.String("transaction_id", ev.TransactionID),
		)
		return OutcomeApplied, nil
	}

	s.log.Info("subscription deactivated",
		zap.Uint("user_id", userID),
		zap.String("transaction_id", ev.TransactionID),
		zap.String("event", string(ev.EventType)),
	)
	s.publish(ctx, events.RoutingKeySubscriptionDeactivated, events.SubscriptionChanged{
		UserID:        userID,
		Status:        models.SubscriptionStatusInactive,
		EventType:     string(ev.EventType),
		TransactionID: ev.TransactionID,
		OccurredAt:    now,
	})
	return OutcomeApplied, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, body events.SubscriptionChanged) {
	if err := s.publisher.Publish(ctx, routingKey, body); err != nil {
		s.log.Warn("failed to publish subscription event",
			zap.String("routing_key", routingKey),
			zap.Uint("user_id", body.UserID),
			zap.Error(err),
		)
	}
}
