package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ran-group/shiftdesk/internal/infra/metrics"
)

// Queue is what the worker drains; *Outbox satisfies it.
type Queue interface {
	ListPending(ctx context.Context, limit int) ([]Message, error)
	Photos(ctx context.Context, outboxID uuid.UUID) ([]Photo, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, sendErr string, maxAttempts int) error
}

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Worker drains the outbox: text first, then photos one by one. A failure
// anywhere marks the attempt failed and the whole message is retried next
// poll, up to MaxAttempts.
type Worker struct {
	queue  Queue
	sender Sender
	cfg    WorkerConfig
	log    *slog.Logger
}

func NewWorker(queue Queue, sender Sender, cfg WorkerConfig, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{queue: queue, sender: sender, cfg: cfg, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.log.Error("outbox drain failed", "err", err)
			}
		}
	}
}

// Drain processes one batch of pending messages.
func (w *Worker) Drain(ctx context.Context) error {
	msgs, err := w.queue.ListPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		w.deliver(ctx, m)
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, m Message) {
	metrics.DeliveryAttempts.Inc()

	if err := w.send(ctx, m); err != nil {
		metrics.DeliveryFailures.Inc()
		w.log.Error("delivery failed", "id", m.ID, "branch", m.Branch, "attempt", m.Attempts+1, "err", err)
		if markErr := w.queue.MarkAttemptFailed(ctx, m.ID, err.Error(), w.cfg.MaxAttempts); markErr != nil {
			w.log.Error("mark failed", "id", m.ID, "err", markErr)
		}
		return
	}
	if err := w.queue.MarkSent(ctx, m.ID); err != nil {
		w.log.Error("mark sent", "id", m.ID, "err", err)
		return
	}
	w.log.Info("report delivered", "id", m.ID, "branch", m.Branch)
}

func (w *Worker) send(ctx context.Context, m Message) error {
	if err := w.sender.SendText(ctx, m.ChatID, m.Body); err != nil {
		return err
	}
	photos, err := w.queue.Photos(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, ph := range photos {
		if err := w.sender.SendPhoto(ctx, m.ChatID, ph.Caption, ph.Data); err != nil {
			return err
		}
	}
	return nil
}
