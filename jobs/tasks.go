package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hopebridge/donor-portal/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecurringCancelled notifies a donor that a recurring gift was cancelled.
	TaskRecurringCancelled = "notify:recurring_cancelled"
)

// RecurringCancelledPayload describes the notification sent after a donor
// cancels a recurring gift.
type RecurringCancelledPayload struct {
	UserID          string    `json:"user_id"`
	RecurringGiftID string    `json:"recurring_gift_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Fund            string    `json:"fund"`
	CancelledAt     time.Time `json:"cancelled_at"`
}

// NewRecurringCancelledTask constructs an Asynq task.
func NewRecurringCancelledTask(payload RecurringCancelledPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.UserID) == "" || strings.TrimSpace(payload.RecurringGiftID) == "" {
		return nil, fmt.Errorf("jobs: recurring cancelled payload requires user and gift ids")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecurringCancelled, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// Notifier delivers donor notifications. The portal ships without a
// provider; LogNotifier stands in until one is configured.
type Notifier interface {
	NotifyRecurringCancelled(ctx context.Context, payload RecurringCancelledPayload) error
}

// LogNotifier records notification requests in the worker log.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyRecurringCancelled implements Notifier.
func (n LogNotifier) NotifyRecurringCancelled(_ context.Context, payload RecurringCancelledPayload) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("recurring gift cancellation notice",
		slog.String("user_id", payload.UserID),
		slog.String("recurring_gift_id", payload.RecurringGiftID),
		slog.Int64("amount_cents", payload.AmountCents),
		slog.String("currency", payload.Currency),
	)
	return nil
}

// NotificationJob processes TaskRecurringCancelled tasks.
type NotificationJob struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewNotificationJob constructs the handler.
func NewNotificationJob(notifier Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationJob{notifier: notifier, logger: logger, metrics: metrics}
}

// Handle decodes the payload and forwards it to the notifier. Malformed
// payloads are not retried.
func (j *NotificationJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskRecurringCancelled)
	var payload RecurringCancelledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("decode recurring cancelled payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("jobs: decode payload: %v: %w", err, asynq.SkipRetry))
	}
	if j.notifier == nil {
		return tracker.End(fmt.Errorf("jobs: notifier not configured: %w", asynq.SkipRetry))
	}
	if err := j.notifier.NotifyRecurringCancelled(ctx, payload); err != nil {
		j.logger.Warn("notify recurring cancelled", slog.String("user_id", payload.UserID), slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
