// Package jobs carries the asynq task definitions and the background worker
// that consumes billing lifecycle events.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/billforge/billforge/internal/billing"
)

const (
	TypeBillIssued      = "bill:issued"
	TypeBillCancelled   = "bill:cancelled"
	TypeBillDueReminder = "bill:due_reminder"
)

// NewBillIssuedTask builds the task enqueued after a bill is issued.
func NewBillIssuedTask(ev billing.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal %s: %w", TypeBillIssued, err)
	}
	return asynq.NewTask(TypeBillIssued, payload, asynq.MaxRetry(5)), nil
}

// NewBillCancelledTask builds the task enqueued after a bill is cancelled.
func NewBillCancelledTask(ev billing.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal %s: %w", TypeBillCancelled, err)
	}
	return asynq.NewTask(TypeBillCancelled, payload, asynq.MaxRetry(5)), nil
}

// NewBillDueReminderTask builds the reminder scheduled for a bill's due date.
func NewBillDueReminderTask(ev billing.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal %s: %w", TypeBillDueReminder, err)
	}
	return asynq.NewTask(TypeBillDueReminder, payload, asynq.MaxRetry(3)), nil
}

// Publisher enqueues billing events. It implements billing.EventSink:
// delivery is best-effort and a failed enqueue never fails the mutation that
// produced the event, so errors are logged here.
type Publisher struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewPublisher constructs a Publisher.
func NewPublisher(client *asynq.Client, log *slog.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// BillIssued enqueues the issued event and, when the bill carries a due date,
// schedules the due reminder for that date.
func (p *Publisher) BillIssued(ctx context.Context, ev billing.Event) error {
	task, err := NewBillIssuedTask(ev)
	if err != nil {
		p.log.Error("enqueue bill issued failed", "bill_id", ev.BillID, "error", err)
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		p.log.Error("enqueue bill issued failed", "bill_id", ev.BillID, "error", err)
		return err
	}

	if ev.DueDate == nil || !ev.DueDate.After(time.Now()) {
		return nil
	}
	reminder, err := NewBillDueReminderTask(ev)
	if err != nil {
		p.log.Error("enqueue due reminder failed", "bill_id", ev.BillID, "error", err)
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, reminder, asynq.ProcessAt(*ev.DueDate)); err != nil {
		p.log.Error("enqueue due reminder failed", "bill_id", ev.BillID, "error", err)
		return err
	}
	return nil
}

// BillCancelled enqueues the cancelled event.
func (p *Publisher) BillCancelled(ctx context.Context, ev billing.Event) error {
	task, err := NewBillCancelledTask(ev)
	if err != nil {
		p.log.Error("enqueue bill cancelled failed", "bill_id", ev.BillID, "error", err)
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		p.log.Error("enqueue bill cancelled failed", "bill_id", ev.BillID, "error", err)
		return err
	}
	return nil
}
