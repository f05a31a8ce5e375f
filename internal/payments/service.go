package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides business logic for standalone payment records.
type Service struct {
	repo *Repository
}

// NewService constructs a payments service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// BuildRecord turns a validated input into a persistable record, assigning a
// reference id and defaults. Shared by the standalone endpoint and the bill
// linkage path.
func BuildRecord(in CreatePaymentInput, createdBy int64) (PaymentRecord, error) {
	if err := ValidateMethodFields(in); err != nil {
		return PaymentRecord{}, err
	}

	status := in.Status
	if status == "" {
		status = StatusCompleted
	}
	date := time.Now().UTC()
	if in.Date != nil {
		date = *in.Date
	}

	return PaymentRecord{
		Reference:    uuid.NewString(),
		Method:       in.Method,
		Amount:       in.Amount,
		Status:       status,
		Date:         date,
		Description:  in.Description,
		OrgID:        in.OrgID,
		ChequeNumber: in.ChequeNumber,
		ChequeDate:   in.ChequeDate,
		BankName:     in.BankName,
		UPIID:        in.UPIID,
		CardLastFour: in.CardLastFour,
		CardType:     in.CardType,
		UTRID:        in.UTRID,
		FinanceName:  in.FinanceName,
		CreatedBy:    createdBy,
	}, nil
}

// Create validates and persists a standalone payment record.
func (s *Service) Create(ctx context.Context, in CreatePaymentInput, createdBy int64) (*PaymentRecord, error) {
	record, err := BuildRecord(in, createdBy)
	if err != nil {
		return nil, err
	}
	id, err := InsertRecord(ctx, s.repo.pool, record)
	if err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}
	return s.repo.GetRecord(ctx, id)
}

// Get retrieves a payment record by id.
func (s *Service) Get(ctx context.Context, id int64) (*PaymentRecord, error) {
	return s.repo.GetRecord(ctx, id)
}

// List returns payment records matching the filters.
func (s *Service) List(ctx context.Context, req ListPaymentsRequest) ([]PaymentRecord, int, error) {
	return s.repo.ListRecords(ctx, req)
}
