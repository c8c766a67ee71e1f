// Package giving serves a donor's own giving history and recurring plans.
package giving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hopebridge/donor-portal/internal/store"
	"github.com/hopebridge/donor-portal/jobs"
)

// Repository is the slice of store.Backend the giving service reads and writes.
type Repository interface {
	ListGifts(ctx context.Context, userID string) ([]store.Gift, error)
	ListRecurringGifts(ctx context.Context, userID string) ([]store.RecurringGift, error)
	CancelRecurringGift(ctx context.Context, userID, id string) (store.RecurringGift, bool, error)
	InsertActivity(ctx context.Context, event store.ActivityEvent) (store.ActivityEvent, error)
}

// Service implements giving use cases. Every call is scoped to one user.
type Service struct {
	repo   Repository
	queue  jobs.Enqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a giving service. queue may be nil.
func NewService(repo Repository, queue jobs.Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, queue: queue, logger: logger, now: time.Now}
}

// Gifts lists completed gifts of userID, newest first.
func (s *Service) Gifts(ctx context.Context, userID string) ([]store.Gift, error) {
	gifts, err := s.repo.ListGifts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("giving: list gifts: %w", err)
	}
	return gifts, nil
}

// Recurring lists the recurring plans of userID.
func (s *Service) Recurring(ctx context.Context, userID string) ([]store.RecurringGift, error) {
	plans, err := s.repo.ListRecurringGifts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("giving: list recurring: %w", err)
	}
	return plans, nil
}

// CancelRecurring cancels plan id of userID. Plans owned by someone else are
// reported as not found. Activity and the donor notification follow only the
// call that actually changed the status, so a repeated or concurrent cancel
// returns the plan without side effects.
func (s *Service) CancelRecurring(ctx context.Context, userID, id string) (store.RecurringGift, error) {
	plan, changed, err := s.repo.CancelRecurringGift(ctx, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.RecurringGift{}, err
		}
		return store.RecurringGift{}, fmt.Errorf("giving: cancel recurring: %w", err)
	}
	if !changed {
		return plan, nil
	}

	cancelledAt := s.now().UTC()
	if _, err := s.repo.InsertActivity(ctx, store.ActivityEvent{
		UserID:     userID,
		Kind:       "recurring_cancelled",
		Message:    fmt.Sprintf("Recurring gift of %s to %s cancelled", FormatAmount(plan.AmountCents, plan.Currency), plan.Fund),
		OccurredAt: cancelledAt,
	}); err != nil {
		s.logger.Warn("record cancel activity", slog.String("user_id", userID), slog.String("recurring_gift_id", id), slog.Any("error", err))
	}

	if s.queue != nil {
		payload := jobs.RecurringCancelledPayload{
			UserID:          userID,
			RecurringGiftID: plan.ID,
			AmountCents:     plan.AmountCents,
			Currency:        plan.Currency,
			Fund:            plan.Fund,
			CancelledAt:     cancelledAt,
		}
		if err := s.queue.EnqueueRecurringCancelled(ctx, payload); err != nil {
			s.logger.Warn("enqueue cancel notice", slog.String("user_id", userID), slog.String("recurring_gift_id", id), slog.Any("error", err))
		}
	}
	return plan, nil
}

// FormatAmount renders minor units as "25.00 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
