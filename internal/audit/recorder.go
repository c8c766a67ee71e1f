package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/store"
)

// Event describes one privileged action to be recorded.
type Event struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
}

// Recorder appends audit entries. Write failures are logged and swallowed:
// losing an entry must never block the action it documents.
type Recorder struct {
	writer  store.AuditWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRecorder returns a Recorder writing through writer.
func NewRecorder(writer store.AuditWriter, logger *slog.Logger, metrics *observability.Metrics) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{writer: writer, logger: logger, metrics: metrics, now: time.Now}
}

// Record persists ev. It never returns an error.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil || r.writer == nil {
		return
	}
	ev.ActorID = strings.TrimSpace(ev.ActorID)
	ev.Action = strings.TrimSpace(ev.Action)
	ev.EntityType = strings.TrimSpace(ev.EntityType)
	if ev.ActorID == "" || ev.Action == "" || ev.EntityType == "" {
		r.metrics.RecordAuditFailure()
		r.logger.Error("audit entry incomplete", slog.String("actor", ev.ActorID), slog.String("action", ev.Action), slog.String("entity_type", ev.EntityType))
		return
	}
	entry := store.AuditEntry{
		ID:          uuid.NewString(),
		ActorUserID: ev.ActorID,
		Action:      ev.Action,
		EntityType:  ev.EntityType,
		EntityID:    strings.TrimSpace(ev.EntityID),
		Details:     copyDetails(ev.Details),
		Timestamp:   r.now().UTC(),
	}
	if err := r.writer.InsertAudit(ctx, entry); err != nil {
		r.metrics.RecordAuditFailure()
		r.logger.Error("audit write failed",
			slog.String("actor", entry.ActorUserID),
			slog.String("action", entry.Action),
			slog.String("entity_type", entry.EntityType),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err),
		)
	}
}

func copyDetails(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
