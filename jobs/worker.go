package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/billforge/billforge/internal/billing"
)

// Worker consumes billing lifecycle tasks.
type Worker struct {
	store billing.Store
	log   *slog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(store billing.Store, log *slog.Logger) *Worker {
	return &Worker{store: store, log: log}
}

// Mux registers the task handlers.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBillIssued, w.HandleBillIssued)
	mux.HandleFunc(TypeBillCancelled, w.HandleBillCancelled)
	mux.HandleFunc(TypeBillDueReminder, w.HandleBillDueReminder)
	return mux
}

func decodeEvent(t *asynq.Task) (billing.Event, error) {
	var ev billing.Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("jobs: decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return ev, nil
}

// HandleBillIssued records the issue downstream. The bill itself is already
// committed; this runs post-commit side effects only.
func (w *Worker) HandleBillIssued(ctx context.Context, t *asynq.Task) error {
	ev, err := decodeEvent(t)
	if err != nil {
		return err
	}
	w.log.Info("bill issued",
		"bill_id", ev.BillID,
		"doc_type", ev.DocType,
		"org_id", ev.OrgID,
		"bill_number", ev.BillNumber,
		"grand_total", ev.GrandTotal,
	)
	return nil
}

// HandleBillCancelled records the cancellation downstream.
func (w *Worker) HandleBillCancelled(ctx context.Context, t *asynq.Task) error {
	ev, err := decodeEvent(t)
	if err != nil {
		return err
	}
	w.log.Info("bill cancelled",
		"bill_id", ev.BillID,
		"doc_type", ev.DocType,
		"org_id", ev.OrgID,
		"bill_number", ev.BillNumber,
	)
	return nil
}

// HandleBillDueReminder fires on the bill's due date. The reminder is dropped
// without retry when the bill was cancelled, refunded or deleted in the
// meantime, or when no balance remains.
func (w *Worker) HandleBillDueReminder(ctx context.Context, t *asynq.Task) error {
	ev, err := decodeEvent(t)
	if err != nil {
		return err
	}

	doc, err := w.store.GetBill(ctx, ev.DocType, ev.BillID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			w.log.Info("due reminder skipped, bill gone", "bill_id", ev.BillID)
			return nil
		}
		return err
	}
	if doc.Status != billing.StatusIssued || doc.Balance <= 0 {
		w.log.Info("due reminder skipped",
			"bill_id", ev.BillID,
			"status", doc.Status,
			"balance", doc.Balance,
		)
		return nil
	}

	w.log.Warn("bill payment due",
		"bill_id", doc.ID,
		"doc_type", doc.DocType,
		"org_id", doc.OrgID,
		"bill_number", doc.BillNumber,
		"balance", doc.Balance,
		"due_date", doc.DueDate,
	)
	return nil
}

// NewServer builds the asynq server consuming from the shared Redis instance.
func NewServer(redisAddr string, log *slog.Logger) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)
}
