package payments

import (
	"errors"
	"time"
)

// Method enumerates supported payment methods.
type Method string

const (
	MethodCash           Method = "cash"
	MethodCheque         Method = "cheque"
	MethodOnlineTransfer Method = "online_transfer"
	MethodCard           Method = "card"
	MethodUPI            Method = "upi"
	MethodFinance        Method = "finance"
	MethodOther          Method = "other"
)

// Status enumerates payment record statuses.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Role names the slot a payment record fills on a billing document.
type Role string

const (
	RoleAdvance Role = "advance"
	RoleBalance Role = "balance"
	RoleFull    Role = "full"
)

// CardType enumerates card kinds.
type CardType string

const (
	CardTypeDebit  CardType = "Debit"
	CardTypeCredit CardType = "Credit"
)

var (
	// ErrPaymentNotFound indicates an unknown payment record reference.
	ErrPaymentNotFound = errors.New("payment record not found")
	// ErrPaymentFieldMissing indicates a method-specific required field is absent.
	ErrPaymentFieldMissing = errors.New("payment field missing")
	// ErrPaymentAlreadyLinked indicates the record already fills the same role
	// on another billing document.
	ErrPaymentAlreadyLinked = errors.New("payment record already linked")
)

// PaymentRecord captures one payment against a billing document. Exactly the
// fields required by the record's method are populated; the rest stay nil.
type PaymentRecord struct {
	ID             int64      `json:"id"`
	Reference      string     `json:"reference"`
	Method         Method     `json:"method"`
	Amount         float64    `json:"amount"`
	Status         Status     `json:"status"`
	Date           time.Time  `json:"date"`
	Description    *string    `json:"description,omitempty"`
	SaleBillID     *int64     `json:"salebill_id,omitempty"`
	PurchaseBillID *int64     `json:"purchasebill_id,omitempty"`
	OrgID          *int64     `json:"org_id,omitempty"`
	ChequeNumber   *string    `json:"cheque_number,omitempty"`
	ChequeDate     *time.Time `json:"cheque_date,omitempty"`
	BankName       *string    `json:"bank_name,omitempty"`
	UPIID          *string    `json:"upi_id,omitempty"`
	CardLastFour   *string    `json:"card_last_four,omitempty"`
	CardType       *CardType  `json:"card_type,omitempty"`
	UTRID          *string    `json:"utr_id,omitempty"`
	FinanceName    *string    `json:"finance_name,omitempty"`
	CreatedBy      int64      `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreatePaymentInput is the request shape for a payment record, inline on a
// bill or through the standalone endpoint.
type CreatePaymentInput struct {
	Method       Method     `json:"method" validate:"required,oneof=cash cheque online_transfer card upi finance other"`
	Amount       float64    `json:"amount" validate:"required,gt=0"`
	Status       Status     `json:"status,omitempty" validate:"omitempty,oneof=Pending Completed Failed Cancelled"`
	Date         *time.Time `json:"date,omitempty"`
	Description  *string    `json:"description,omitempty"`
	OrgID        *int64     `json:"org_id,omitempty" validate:"omitempty,gt=0"`
	ChequeNumber *string    `json:"cheque_number,omitempty"`
	ChequeDate   *time.Time `json:"cheque_date,omitempty"`
	BankName     *string    `json:"bank_name,omitempty"`
	UPIID        *string    `json:"upi_id,omitempty"`
	CardLastFour *string    `json:"card_last_four,omitempty" validate:"omitempty,len=4,numeric"`
	CardType     *CardType  `json:"card_type,omitempty" validate:"omitempty,oneof=Debit Credit"`
	UTRID        *string    `json:"utr_id,omitempty"`
	FinanceName  *string    `json:"finance_name,omitempty"`
}

// ListPaymentsRequest filters payment records.
type ListPaymentsRequest struct {
	SaleBillID     *int64
	PurchaseBillID *int64
	OrgID          *int64
	Status         *Status
	Limit          int
	Offset         int
}
