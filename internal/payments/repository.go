package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx so linkage operations can
// join the bill mutation's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository provides PostgreSQL backed persistence for payment records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `
	id, reference, method, amount, status, date, description,
	salebill_id, purchasebill_id, org_id,
	cheque_number, cheque_date, bank_name, upi_id, card_last_four, card_type,
	utr_id, finance_name, created_by, created_at, updated_at
`

func scanRecord(row pgx.Row) (*PaymentRecord, error) {
	var p PaymentRecord
	err := row.Scan(
		&p.ID, &p.Reference, &p.Method, &p.Amount, &p.Status, &p.Date, &p.Description,
		&p.SaleBillID, &p.PurchaseBillID, &p.OrgID,
		&p.ChequeNumber, &p.ChequeDate, &p.BankName, &p.UPIID, &p.CardLastFour, &p.CardType,
		&p.UTRID, &p.FinanceName, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetRecord fetches a payment record by id.
func (r *Repository) GetRecord(ctx context.Context, id int64) (*PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_records WHERE id = $1`, recordColumns)
	return scanRecord(r.pool.QueryRow(ctx, query, id))
}

// GetRecordQ fetches a payment record on the given querier.
func GetRecordQ(ctx context.Context, q Querier, id int64) (*PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_records WHERE id = $1`, recordColumns)
	return scanRecord(q.QueryRow(ctx, query, id))
}

// ListRecords returns payment records matching the filters, newest first.
func (r *Repository) ListRecords(ctx context.Context, req ListPaymentsRequest) ([]PaymentRecord, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argPos := 1

	if req.SaleBillID != nil {
		conditions = append(conditions, fmt.Sprintf("salebill_id = $%d", argPos))
		args = append(args, *req.SaleBillID)
		argPos++
	}
	if req.PurchaseBillID != nil {
		conditions = append(conditions, fmt.Sprintf("purchasebill_id = $%d", argPos))
		args = append(args, *req.PurchaseBillID)
		argPos++
	}
	if req.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argPos))
		args = append(args, *req.OrgID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payment_records %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM payment_records
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, recordColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}

// InsertRecord persists a payment record on the given querier and returns its id.
func InsertRecord(ctx context.Context, q Querier, p PaymentRecord) (int64, error) {
	const query = `
		INSERT INTO payment_records (
			reference, method, amount, status, date, description,
			salebill_id, purchasebill_id, org_id,
			cheque_number, cheque_date, bank_name, upi_id, card_last_four, card_type,
			utr_id, finance_name, created_by, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())
		RETURNING id
	`
	var id int64
	err := q.QueryRow(ctx, query,
		p.Reference, p.Method, p.Amount, p.Status, p.Date, p.Description,
		p.SaleBillID, p.PurchaseBillID, p.OrgID,
		p.ChequeNumber, p.ChequeDate, p.BankName, p.UPIID, p.CardLastFour, p.CardType,
		p.UTRID, p.FinanceName, p.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("payments: insert record: %w", err)
	}
	return id, nil
}

func roleColumn(role Role) (string, error) {
	switch role {
	case RoleAdvance:
		return "advance_payment_id", nil
	case RoleBalance:
		return "balance_payment_id", nil
	case RoleFull:
		return "full_payment_id", nil
	default:
		return "", fmt.Errorf("payments: unknown role %q", role)
	}
}

// RoleTaken reports whether the payment record already fills the given role on
// any billing document other than excludeBillID.
func RoleTaken(ctx context.Context, q Querier, paymentID int64, role Role, excludeBillID int64) (bool, error) {
	col, err := roleColumn(role)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM bills WHERE %s = $1 AND id <> $2)`, col)
	var taken bool
	if err := q.QueryRow(ctx, query, paymentID, excludeBillID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// SetBillRef writes the back-reference from a payment record to its bill.
func SetBillRef(ctx context.Context, q Querier, paymentID int64, saleBillID, purchaseBillID *int64) error {
	const query = `
		UPDATE payment_records
		SET salebill_id = COALESCE($2, salebill_id),
		    purchasebill_id = COALESCE($3, purchasebill_id),
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, paymentID, saleBillID, purchaseBillID)
	if err != nil {
		return fmt.Errorf("payments: set bill ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrPaymentNotFound, paymentID)
	}
	return nil
}
