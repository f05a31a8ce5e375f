package billing

import (
	"context"
	"time"
)

// Event carries the bill facts downstream consumers need without re-reading
// the row.
type Event struct {
	BillID     int64        `json:"bill_id"`
	DocType    DocumentType `json:"doc_type"`
	OrgID      int64        `json:"org_id"`
	BillNumber string       `json:"bill_number"`
	GrandTotal float64      `json:"grand_total"`
	DueDate    *time.Time   `json:"due_date,omitempty"`
}

// EventSink receives lifecycle notifications after a mutation commits.
// Delivery is best-effort: implementations log failures themselves and the
// service never fails a committed mutation over a lost event.
type EventSink interface {
	BillIssued(ctx context.Context, ev Event) error
	BillCancelled(ctx context.Context, ev Event) error
}

// NopEventSink discards events. Used when no queue is configured.
type NopEventSink struct{}

func (NopEventSink) BillIssued(context.Context, Event) error    { return nil }
func (NopEventSink) BillCancelled(context.Context, Event) error { return nil }

func eventFrom(doc *BillingDocument) Event {
	return Event{
		BillID:     doc.ID,
		DocType:    doc.DocType,
		OrgID:      doc.OrgID,
		BillNumber: doc.BillNumber,
		GrandTotal: doc.GrandTotal,
		DueDate:    doc.DueDate,
	}
}
