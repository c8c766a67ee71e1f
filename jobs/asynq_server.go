package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/platform/httpx"
)

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("worker: no task handlers registered")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Enqueuer submits donor notifications for background delivery.
type Enqueuer interface {
	EnqueueRecurringCancelled(ctx context.Context, payload RecurringCancelledPayload) error
}

// Client submits jobs to the queue.
type Client struct {
	client  *asynq.Client
	metrics *observability.Metrics
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, metrics *observability.Metrics) *Client {
	return &Client{client: asynq.NewClient(redisOpts), metrics: metrics}
}

// EnqueueRecurringCancelled enqueues a cancellation notice.
func (c *Client) EnqueueRecurringCancelled(ctx context.Context, payload RecurringCancelledPayload) error {
	task, err := NewRecurringCancelledTask(payload)
	if err != nil {
		c.metrics.RecordJobEnqueue(TaskRecurringCancelled, err)
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	c.metrics.RecordJobEnqueue(TaskRecurringCancelled, err)
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// LogEnqueuer replaces the queue when no Redis is configured (parity mode):
// the notification is logged and handed to the notifier inline.
type LogEnqueuer struct {
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// EnqueueRecurringCancelled implements Enqueuer.
func (e LogEnqueuer) EnqueueRecurringCancelled(ctx context.Context, payload RecurringCancelledPayload) error {
	if _, err := NewRecurringCancelledTask(payload); err != nil {
		e.Metrics.RecordJobEnqueue(TaskRecurringCancelled, err)
		return err
	}
	if e.Logger != nil {
		e.Logger.Debug("job queue disabled, delivering inline", slog.String("task", TaskRecurringCancelled))
	}
	var err error
	if e.Notifier != nil {
		err = e.Notifier.NotifyRecurringCancelled(ctx, payload)
	}
	e.Metrics.RecordJobEnqueue(TaskRecurringCancelled, err)
	return err
}

// QueueInspector is the part of asynq.Inspector used by the health route.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil inspector
// reports an empty queue.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
	Enabled  bool   `json:"enabled"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, queueHealth{Queue: QueueDefault})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
		return
	}
	resp := queueHealth{Queue: QueueDefault, Enabled: true}
	if info != nil {
		resp.Queue = info.Queue
		resp.Pending = info.Pending
		resp.Active = info.Active
		resp.Retry = info.Retry
		resp.Archived = info.Archived
	}
	httpx.JSON(w, http.StatusOK, resp)
}
