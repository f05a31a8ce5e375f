package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billforge/billforge/internal/catalog"
	"github.com/billforge/billforge/internal/payments"
	"github.com/billforge/billforge/internal/platform/db"
)

// Querier is the subset of pgx behavior the billing queries need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same statements run standalone
// or inside a bill mutation's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TxRepository is the per-transaction surface the lifecycle service mutates
// through. Every method runs on the same transaction, so a failed stock
// adjustment or payment link rolls the whole bill mutation back.
type TxRepository interface {
	InsertBill(ctx context.Context, doc *BillingDocument) error
	UpdateBill(ctx context.Context, doc *BillingDocument) error
	SetStatus(ctx context.Context, id int64, status Status) error
	SetPaymentRefs(ctx context.Context, id int64, advanceID, balanceID, fullID *int64) error
	SoftDelete(ctx context.Context, id int64) error

	AdjustStock(ctx context.Context, productID int64, qty float64, direction catalog.StockDirection) (float64, error)

	CreatePayment(ctx context.Context, rec payments.PaymentRecord) (int64, error)
	GetPayment(ctx context.Context, id int64) (*payments.PaymentRecord, error)
	PaymentRoleTaken(ctx context.Context, paymentID int64, role payments.Role, excludeBillID int64) (bool, error)
	LinkPayment(ctx context.Context, paymentID int64, saleBillID, purchaseBillID *int64) error
}

// Store is the persistence surface the lifecycle service depends on.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetBill(ctx context.Context, docType DocumentType, id int64) (*BillingDocument, error)
	GetBillWithPayments(ctx context.Context, docType DocumentType, id int64) (*BillWithPayments, error)
	ListBills(ctx context.Context, docType DocumentType, req ListBillsRequest) ([]BillingDocument, int, error)
	Summary(ctx context.Context, docType DocumentType, req SummaryRequest) (Summary, error)
}

// Repository implements Store against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn with a TxRepository bound to a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

const billColumns = `
	id, doc_type, bill_number, org_id, party_id,
	payment_type, advance, balance, advance_payment_id, balance_payment_id, full_payment_id,
	subtotal, discount, gst_total, cgst, sgst, igst, round_off, grand_total,
	status, is_active, created_by, notes, due_date, created_at, updated_at
`

func scanBill(row pgx.Row) (*BillingDocument, error) {
	var d BillingDocument
	err := row.Scan(
		&d.ID, &d.DocType, &d.BillNumber, &d.OrgID, &d.PartyID,
		&d.PaymentType, &d.Advance, &d.Balance, &d.AdvancePaymentID, &d.BalancePaymentID, &d.FullPaymentID,
		&d.Subtotal, &d.Discount, &d.GSTTotal, &d.CGST, &d.SGST, &d.IGST, &d.RoundOff, &d.GrandTotal,
		&d.Status, &d.IsActive, &d.CreatedBy, &d.Notes, &d.DueDate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: scan bill: %w", err)
	}
	return &d, nil
}

func getBill(ctx context.Context, q Querier, docType DocumentType, id int64) (*BillingDocument, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM bills
		WHERE id = $1 AND doc_type = $2 AND is_active
	`, billColumns)
	doc, err := scanBill(q.QueryRow(ctx, query, id, string(docType)))
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return doc, nil
}

func loadItems(ctx context.Context, q Querier, billID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, name, hsn_code, qty, unit_price,
		       discount, discount_type, tax_rate, tax_type,
		       discount_amount, subtotal, cgst, sgst, igst, tax_amount, total, line_order
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY line_order
	`, billID)
	if err != nil {
		return nil, fmt.Errorf("billing: load items: %w", err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(
			&it.ID, &it.ProductID, &it.Name, &it.HSNCode, &it.Quantity, &it.UnitPrice,
			&it.Discount, &it.DiscountType, &it.TaxRate, &it.TaxType,
			&it.DiscountAmount, &it.Subtotal, &it.CGST, &it.SGST, &it.IGST, &it.TaxAmount, &it.Total, &it.LineOrder,
		); err != nil {
			return nil, fmt.Errorf("billing: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetBill loads one active bill with its line items.
func (r *Repository) GetBill(ctx context.Context, docType DocumentType, id int64) (*BillingDocument, error) {
	return getBill(ctx, r.pool, docType, id)
}

// GetBillWithPayments loads a bill plus whichever payment records its slots
// reference.
func (r *Repository) GetBillWithPayments(ctx context.Context, docType DocumentType, id int64) (*BillWithPayments, error) {
	doc, err := getBill(ctx, r.pool, docType, id)
	if err != nil {
		return nil, err
	}
	out := &BillWithPayments{BillingDocument: *doc}
	for _, slot := range []struct {
		id   *int64
		dest **payments.PaymentRecord
	}{
		{doc.AdvancePaymentID, &out.AdvancePayment},
		{doc.BalancePaymentID, &out.BalancePayment},
		{doc.FullPaymentID, &out.FullPayment},
	} {
		if slot.id == nil {
			continue
		}
		rec, err := payments.GetRecordQ(ctx, r.pool, *slot.id)
		if err != nil {
			if errors.Is(err, payments.ErrPaymentNotFound) {
				continue
			}
			return nil, err
		}
		*slot.dest = rec
	}
	return out, nil
}

// ListBills returns active bills matching the filters, newest first, with the
// total match count for pagination.
func (r *Repository) ListBills(ctx context.Context, docType DocumentType, req ListBillsRequest) ([]BillingDocument, int, error) {
	conditions := []string{"doc_type = $1", "is_active"}
	args := []any{string(docType)}
	argPos := 2

	if req.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argPos))
		args = append(args, *req.OrgID)
		argPos++
	}
	if req.PartyID != nil {
		conditions = append(conditions, fmt.Sprintf("party_id = $%d", argPos))
		args = append(args, *req.PartyID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.StartDate)
		argPos++
	}
	if req.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.EndDate)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM bills WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count bills: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM bills
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, billColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list bills: %w", err)
	}
	defer rows.Close()

	var docs []BillingDocument
	for rows.Next() {
		doc, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range docs {
		items, err := loadItems(ctx, r.pool, docs[i].ID)
		if err != nil {
			return nil, 0, err
		}
		docs[i].Items = items
	}
	return docs, total, nil
}

// Summary aggregates active bills of one type. Paid counts the grand total of
// full-payment bills plus the advance of advance bills; pending is the
// outstanding balance on advance bills. Cancelled bills stay in the total
// count but contribute nothing to the money columns.
func (r *Repository) Summary(ctx context.Context, docType DocumentType, req SummaryRequest) (Summary, error) {
	conditions := []string{"doc_type = $1", "is_active"}
	args := []any{string(docType)}
	argPos := 2

	if req.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argPos))
		args = append(args, *req.OrgID)
		argPos++
	}
	if req.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.StartDate)
		argPos++
	}
	if req.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.EndDate)
		argPos++
	}

	query := fmt.Sprintf(`
		SELECT
			count(*),
			COALESCE(SUM(grand_total) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(
				CASE WHEN payment_type = 'full' THEN grand_total ELSE advance END
			) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(balance) FILTER (WHERE payment_type = 'advance' AND status <> 'cancelled'), 0),
			count(*) FILTER (WHERE status = 'issued'),
			count(*) FILTER (WHERE status = 'cancelled')
		FROM bills
		WHERE %s
	`, strings.Join(conditions, " AND "))

	var s Summary
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.TotalBills, &s.TotalAmount, &s.TotalPaid, &s.TotalPending,
		&s.IssuedBills, &s.CancelledBills,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("billing: summary: %w", err)
	}
	return s, nil
}

type txRepo struct {
	q Querier
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (t *txRepo) InsertBill(ctx context.Context, doc *BillingDocument) error {
	const query = `
		INSERT INTO bills (
			doc_type, bill_number, org_id, party_id,
			payment_type, advance, balance,
			subtotal, discount, gst_total, cgst, sgst, igst, round_off, grand_total,
			status, created_by, notes, due_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at
	`
	err := t.q.QueryRow(ctx, query,
		string(doc.DocType), doc.BillNumber, doc.OrgID, doc.PartyID,
		string(doc.PaymentType), doc.Advance, doc.Balance,
		doc.Subtotal, doc.Discount, doc.GSTTotal, doc.CGST, doc.SGST, doc.IGST, doc.RoundOff, doc.GrandTotal,
		string(doc.Status), doc.CreatedBy, doc.Notes, doc.DueDate,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateBillNumber, doc.BillNumber)
		}
		return fmt.Errorf("billing: insert bill: %w", err)
	}
	doc.IsActive = true
	return t.insertItems(ctx, doc)
}

func (t *txRepo) insertItems(ctx context.Context, doc *BillingDocument) error {
	const query = `
		INSERT INTO bill_items (
			bill_id, product_id, name, hsn_code, qty, unit_price,
			discount, discount_type, tax_rate, tax_type,
			discount_amount, subtotal, cgst, sgst, igst, tax_amount, total, line_order
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	for i := range doc.Items {
		it := &doc.Items[i]
		it.LineOrder = i
		err := t.q.QueryRow(ctx, query,
			doc.ID, it.ProductID, it.Name, it.HSNCode, it.Quantity, it.UnitPrice,
			it.Discount, string(it.DiscountType), it.TaxRate, string(it.TaxType),
			it.DiscountAmount, it.Subtotal, it.CGST, it.SGST, it.IGST, it.TaxAmount, it.Total, it.LineOrder,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("billing: insert item: %w", err)
		}
	}
	return nil
}

func (t *txRepo) UpdateBill(ctx context.Context, doc *BillingDocument) error {
	const query = `
		UPDATE bills
		SET party_id = $2, payment_type = $3, advance = $4, balance = $5,
		    subtotal = $6, discount = $7, gst_total = $8, cgst = $9, sgst = $10,
		    igst = $11, round_off = $12, grand_total = $13,
		    status = $14, notes = $15, due_date = $16, updated_at = now()
		WHERE id = $1 AND is_active
	`
	tag, err := t.q.Exec(ctx, query,
		doc.ID, doc.PartyID, string(doc.PaymentType), doc.Advance, doc.Balance,
		doc.Subtotal, doc.Discount, doc.GSTTotal, doc.CGST, doc.SGST,
		doc.IGST, doc.RoundOff, doc.GrandTotal,
		string(doc.Status), doc.Notes, doc.DueDate,
	)
	if err != nil {
		return fmt.Errorf("billing: update bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("billing: clear items: %w", err)
	}
	return t.insertItems(ctx, doc)
}

func (t *txRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE bills SET status = $2, updated_at = now()
		WHERE id = $1 AND is_active
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("billing: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetPaymentRefs(ctx context.Context, id int64, advanceID, balanceID, fullID *int64) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE bills
		SET advance_payment_id = $2, balance_payment_id = $3, full_payment_id = $4,
		    updated_at = now()
		WHERE id = $1 AND is_active
	`, id, advanceID, balanceID, fullID)
	if err != nil {
		return fmt.Errorf("billing: set payment refs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE bills SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return fmt.Errorf("billing: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) AdjustStock(ctx context.Context, productID int64, qty float64, direction catalog.StockDirection) (float64, error) {
	return catalog.AdjustStock(ctx, t.q, productID, qty, direction)
}

func (t *txRepo) CreatePayment(ctx context.Context, rec payments.PaymentRecord) (int64, error) {
	return payments.InsertRecord(ctx, t.q, rec)
}

func (t *txRepo) GetPayment(ctx context.Context, id int64) (*payments.PaymentRecord, error) {
	return payments.GetRecordQ(ctx, t.q, id)
}

func (t *txRepo) PaymentRoleTaken(ctx context.Context, paymentID int64, role payments.Role, excludeBillID int64) (bool, error) {
	return payments.RoleTaken(ctx, t.q, paymentID, role, excludeBillID)
}

func (t *txRepo) LinkPayment(ctx context.Context, paymentID int64, saleBillID, purchaseBillID *int64) error {
	return payments.SetBillRef(ctx, t.q, paymentID, saleBillID, purchaseBillID)
}
