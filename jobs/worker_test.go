package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/billforge/billforge/internal/billing"
)

type fakeStore struct {
	bills map[int64]*billing.BillingDocument
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx billing.TxRepository) error) error {
	return fn(ctx, nil)
}

func (f *fakeStore) GetBill(_ context.Context, docType billing.DocumentType, id int64) (*billing.BillingDocument, error) {
	doc, ok := f.bills[id]
	if !ok || doc.DocType != docType {
		return nil, billing.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) GetBillWithPayments(ctx context.Context, docType billing.DocumentType, id int64) (*billing.BillWithPayments, error) {
	doc, err := f.GetBill(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	return &billing.BillWithPayments{BillingDocument: *doc}, nil
}

func (f *fakeStore) ListBills(context.Context, billing.DocumentType, billing.ListBillsRequest) ([]billing.BillingDocument, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) Summary(context.Context, billing.DocumentType, billing.SummaryRequest) (billing.Summary, error) {
	return billing.Summary{}, nil
}

func reminderTask(t *testing.T, ev billing.Event) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	return asynq.NewTask(TypeBillDueReminder, payload)
}

func TestDueReminderSkipsMissingBill(t *testing.T) {
	w := NewWorker(&fakeStore{bills: map[int64]*billing.BillingDocument{}}, slog.Default())

	task := reminderTask(t, billing.Event{BillID: 1, DocType: billing.DocTypeSale})
	require.NoError(t, w.HandleBillDueReminder(context.Background(), task))
}

func TestDueReminderSkipsSettledOrCancelledBills(t *testing.T) {
	store := &fakeStore{bills: map[int64]*billing.BillingDocument{
		1: {ID: 1, DocType: billing.DocTypeSale, Status: billing.StatusCancelled, Balance: 50},
		2: {ID: 2, DocType: billing.DocTypeSale, Status: billing.StatusIssued, Balance: 0},
		3: {ID: 3, DocType: billing.DocTypeSale, Status: billing.StatusIssued, Balance: 75},
	}}
	w := NewWorker(store, slog.Default())
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		task := reminderTask(t, billing.Event{BillID: id, DocType: billing.DocTypeSale})
		require.NoError(t, w.HandleBillDueReminder(ctx, task))
	}
}

func TestMalformedPayloadIsNotRetried(t *testing.T) {
	w := NewWorker(&fakeStore{bills: map[int64]*billing.BillingDocument{}}, slog.Default())

	task := asynq.NewTask(TypeBillDueReminder, []byte("{not json"))
	err := w.HandleBillDueReminder(context.Background(), task)
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
