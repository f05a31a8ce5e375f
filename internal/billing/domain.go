package billing

import (
	"errors"
	"time"

	"github.com/billforge/billforge/internal/payments"
	"github.com/billforge/billforge/internal/sequence"
)

// DocumentType aliases the sequence package's series identifier; the two
// concrete bill variants differ only in counterparty role and stock polarity.
type DocumentType = sequence.DocumentType

const (
	DocTypeSale     = sequence.DocTypeSaleBill
	DocTypePurchase = sequence.DocTypePurchaseBill
)

// Status enumerates the billing document lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// PaymentType discriminates which payment slots a bill must carry.
type PaymentType string

const (
	PaymentTypeFull    PaymentType = "full"
	PaymentTypeAdvance PaymentType = "advance"
)

// DiscountType selects how a line discount is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// TaxType selects the tax split applied to a line.
type TaxType string

const (
	TaxTypeGST  TaxType = "gst"
	TaxTypeIGST TaxType = "igst"
	TaxTypeNone TaxType = "none"
)

var (
	// ErrNotFound indicates the bill does not exist or is soft-deleted.
	ErrNotFound = errors.New("bill not found")
	// ErrImmutableDocument indicates a mutation outside draft status.
	ErrImmutableDocument = errors.New("only draft bills can be modified")
	// ErrAlreadyCancelled indicates a repeated cancellation.
	ErrAlreadyCancelled = errors.New("bill is already cancelled")
	// ErrRefundedImmutable indicates a transition attempt on a refunded bill.
	ErrRefundedImmutable = errors.New("refunded bills cannot be cancelled")
	// ErrDeleteNotAllowed indicates a delete outside draft/cancelled.
	ErrDeleteNotAllowed = errors.New("only draft or cancelled bills can be deleted")
	// ErrDuplicateBillNumber indicates the bill number is already taken within
	// the organization and document type.
	ErrDuplicateBillNumber = errors.New("bill number already exists")
	// ErrInvalidStatus indicates a status transition the lifecycle forbids.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
)

// LineItem is one product entry on a billing document. Name and HSN code are
// snapshots from the catalog at creation time; later product edits do not
// propagate.
type LineItem struct {
	ID             int64        `json:"id"`
	ProductID      int64        `json:"product_id"`
	Name           string       `json:"name"`
	HSNCode        *string      `json:"hsn_code,omitempty"`
	Quantity       float64      `json:"qty"`
	UnitPrice      float64      `json:"unit_price"`
	Discount       float64      `json:"discount"`
	DiscountType   DiscountType `json:"discount_type"`
	TaxRate        float64      `json:"tax_rate"`
	TaxType        TaxType      `json:"tax_type"`
	DiscountAmount float64      `json:"discount_amount"`
	Subtotal       float64      `json:"subtotal"`
	CGST           float64      `json:"cgst"`
	SGST           float64      `json:"sgst"`
	IGST           float64      `json:"igst"`
	TaxAmount      float64      `json:"tax_amount"`
	Total          float64      `json:"total"`
	LineOrder      int          `json:"line_order"`
}

// BillingDocument is the shared shape for sale and purchase bills.
type BillingDocument struct {
	ID         int64        `json:"id"`
	DocType    DocumentType `json:"doc_type"`
	BillNumber string       `json:"bill_number"`
	PartyID    int64        `json:"bill_to"`
	Items      []LineItem   `json:"products"`

	PaymentType      PaymentType `json:"payment_type"`
	Advance          float64     `json:"advance"`
	Balance          float64     `json:"balance"`
	AdvancePaymentID *int64      `json:"advance_payment_id,omitempty"`
	BalancePaymentID *int64      `json:"balance_payment_id,omitempty"`
	FullPaymentID    *int64      `json:"full_payment_id,omitempty"`

	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	GSTTotal   float64 `json:"gst_total"`
	CGST       float64 `json:"cgst"`
	SGST       float64 `json:"sgst"`
	IGST       float64 `json:"igst"`
	RoundOff   float64 `json:"round_off"`
	GrandTotal float64 `json:"grand_total"`

	Status   Status `json:"status"`
	IsActive bool   `json:"is_active"`

	OrgID     int64      `json:"org_id"`
	CreatedBy int64      `json:"created_by"`
	Notes     *string    `json:"notes,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BillWithPayments decorates a bill with its populated payment records.
type BillWithPayments struct {
	BillingDocument
	AdvancePayment *payments.PaymentRecord `json:"advance_payment,omitempty"`
	BalancePayment *payments.PaymentRecord `json:"balance_payment,omitempty"`
	FullPayment    *payments.PaymentRecord `json:"full_payment,omitempty"`
}

// CreateLineItemRequest is one product entry in a create/update payload.
type CreateLineItemRequest struct {
	ProductID    int64        `json:"product_id" validate:"required,gt=0"`
	Quantity     float64      `json:"qty" validate:"required,gte=1"`
	UnitPrice    *float64     `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Discount     float64      `json:"discount" validate:"gte=0"`
	DiscountType DiscountType `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage flat"`
	TaxRate      float64      `json:"tax_rate" validate:"gte=0,lte=100"`
	TaxType      TaxType      `json:"tax_type,omitempty" validate:"omitempty,oneof=gst igst none"`
}

// CreateBillRequest is the payload for POST /salebills and /purchasebills.
// Monetary rollups are never read from the payload; they are recomputed
// server-side from the line items.
type CreateBillRequest struct {
	OrgID      int64                   `json:"org" validate:"required,gt=0"`
	PartyID    int64                   `json:"bill_to" validate:"required,gt=0"`
	BillNumber *string                 `json:"bill_number,omitempty" validate:"omitempty,max=50"`
	Items      []CreateLineItemRequest `json:"products" validate:"required,min=1,dive"`

	PaymentType PaymentType `json:"payment_type" validate:"required,oneof=full advance"`
	Advance     float64     `json:"advance" validate:"gte=0"`
	// Balance is accepted for wire compatibility with older clients and
	// ignored; the stored balance is always derived as grand total minus
	// advance.
	Balance          float64                      `json:"balance"`
	AdvancePayment   *payments.CreatePaymentInput `json:"advance_payment,omitempty"`
	BalancePayment   *payments.CreatePaymentInput `json:"balance_payment,omitempty"`
	FullPayment      *payments.CreatePaymentInput `json:"full_payment,omitempty"`
	AdvancePaymentID *int64                       `json:"advance_payment_id,omitempty" validate:"omitempty,gt=0"`
	BalancePaymentID *int64                       `json:"balance_payment_id,omitempty" validate:"omitempty,gt=0"`
	FullPaymentID    *int64                       `json:"full_payment_id,omitempty" validate:"omitempty,gt=0"`

	Discount float64 `json:"discount" validate:"gte=0"`
	RoundOff float64 `json:"round_off"`

	Notes   *string    `json:"notes,omitempty" validate:"omitempty,max=500"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Status  *Status    `json:"status,omitempty" validate:"omitempty,oneof=draft issued"`
}

// UpdateBillRequest is the payload for PUT /{type}/{id}. Nil fields keep the
// stored value. Monetary rollups are always recomputed from the resulting
// line items, never taken from the payload.
type UpdateBillRequest struct {
	PartyID *int64                   `json:"bill_to,omitempty" validate:"omitempty,gt=0"`
	Items   *[]CreateLineItemRequest `json:"products,omitempty" validate:"omitempty,min=1,dive"`

	PaymentType      *PaymentType                 `json:"payment_type,omitempty" validate:"omitempty,oneof=full advance"`
	Advance          *float64                     `json:"advance,omitempty" validate:"omitempty,gte=0"`
	Balance          *float64                     `json:"balance,omitempty" validate:"omitempty,gte=0"`
	AdvancePayment   *payments.CreatePaymentInput `json:"advance_payment,omitempty"`
	BalancePayment   *payments.CreatePaymentInput `json:"balance_payment,omitempty"`
	FullPayment      *payments.CreatePaymentInput `json:"full_payment,omitempty"`
	AdvancePaymentID *int64                       `json:"advance_payment_id,omitempty" validate:"omitempty,gt=0"`
	BalancePaymentID *int64                       `json:"balance_payment_id,omitempty" validate:"omitempty,gt=0"`
	FullPaymentID    *int64                       `json:"full_payment_id,omitempty" validate:"omitempty,gt=0"`

	Discount *float64 `json:"discount,omitempty" validate:"omitempty,gte=0"`
	RoundOff *float64 `json:"round_off,omitempty"`

	Notes   *string    `json:"notes,omitempty" validate:"omitempty,max=500"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Status  *Status    `json:"status,omitempty" validate:"omitempty,oneof=draft issued cancelled refunded"`
}

// ListBillsRequest filters bill listings. Soft-deleted bills are always
// excluded.
type ListBillsRequest struct {
	OrgID     *int64
	PartyID   *int64
	Status    *Status
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Summary aggregates bill totals for dashboards.
type Summary struct {
	TotalBills     int     `json:"totalBills"`
	TotalAmount    float64 `json:"totalAmount"`
	TotalPaid      float64 `json:"totalPaid"`
	TotalPending   float64 `json:"totalPending"`
	IssuedBills    int     `json:"issuedBills"`
	CancelledBills int     `json:"cancelledBills"`
}

// SummaryRequest scopes a summary aggregate.
type SummaryRequest struct {
	OrgID     *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// CombinedSummary pairs the per-type aggregates.
type CombinedSummary struct {
	SaleBills     Summary `json:"saleBills"`
	PurchaseBills Summary `json:"purchaseBills"`
}
