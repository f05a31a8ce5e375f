package billing

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/billforge/billforge/internal/catalog"
	"github.com/billforge/billforge/internal/payments"
)

// CatalogPort is the product lookup the service snapshots line items from.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

// DirectoryPort verifies organization and party references.
type DirectoryPort interface {
	OrganizationExists(ctx context.Context, id int64) error
	PartyExists(ctx context.Context, id int64) error
}

// NumberSource issues bill numbers.
type NumberSource interface {
	Next(ctx context.Context, orgID int64, docType DocumentType) (string, error)
}

// Service implements the billing document lifecycle: draft, issue, cancel,
// refund and soft delete, with stock and payment effects riding the same
// transaction as the document mutation.
type Service struct {
	store     Store
	catalog   CatalogPort
	directory DirectoryPort
	numbers   NumberSource
	events    EventSink
	summaries *SummaryCache
}

// NewService constructs a Service. events may be a NopEventSink and summaries
// may be nil when no queue or cache is configured.
func NewService(store Store, cat CatalogPort, dir DirectoryPort, numbers NumberSource, events EventSink, summaries *SummaryCache) *Service {
	if events == nil {
		events = NopEventSink{}
	}
	return &Service{
		store:     store,
		catalog:   cat,
		directory: dir,
		numbers:   numbers,
		events:    events,
		summaries: summaries,
	}
}

type paymentSlot struct {
	role     payments.Role
	inline   *payments.CreatePaymentInput
	existing *int64
}

// stockDirection returns the polarity for committing stock when a bill of the
// given type is issued. Cancelling applies the opposite.
func stockDirection(docType DocumentType, issue bool) catalog.StockDirection {
	outbound := docType == DocTypeSale
	if !issue {
		outbound = !outbound
	}
	if outbound {
		return catalog.StockSubtract
	}
	return catalog.StockAdd
}

// Create builds a new billing document. Totals are always recomputed from the
// line items; a client-supplied grand total is never trusted. When the initial
// status is issued the stock commitment and payment linkage happen in the same
// transaction as the insert, so a failed adjustment leaves no document behind.
func (s *Service) Create(ctx context.Context, docType DocumentType, req CreateBillRequest, createdBy int64) (*BillWithPayments, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrValidation, docType)
	}

	status := StatusIssued
	if req.Status != nil {
		status = *req.Status
	}

	if err := s.directory.OrganizationExists(ctx, req.OrgID); err != nil {
		return nil, err
	}
	if err := s.directory.PartyExists(ctx, req.PartyID); err != nil {
		return nil, err
	}

	items, calcLines, err := s.snapshotItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	amounts, totals := Calculate(calcLines, req.Discount, req.RoundOff)
	applyAmounts(items, amounts)

	doc := &BillingDocument{
		DocType:     docType,
		OrgID:       req.OrgID,
		PartyID:     req.PartyID,
		Items:       items,
		PaymentType: req.PaymentType,
		Advance:     req.Advance,
		Subtotal:    totals.Subtotal,
		Discount:    totals.Discount,
		GSTTotal:    totals.GSTTotal,
		CGST:        totals.CGST,
		SGST:        totals.SGST,
		IGST:        totals.IGST,
		RoundOff:    totals.RoundOff,
		GrandTotal:  totals.GrandTotal,
		Status:      status,
		CreatedBy:   createdBy,
		Notes:       req.Notes,
		DueDate:     req.DueDate,
	}
	if doc.PaymentType == PaymentTypeAdvance {
		doc.Balance = doc.GrandTotal - doc.Advance
	}

	slots := []paymentSlot{
		{payments.RoleAdvance, req.AdvancePayment, req.AdvancePaymentID},
		{payments.RoleBalance, req.BalancePayment, req.BalancePaymentID},
		{payments.RoleFull, req.FullPayment, req.FullPaymentID},
	}
	if err := validatePaymentPlan(doc, slots, status); err != nil {
		return nil, err
	}

	if req.BillNumber != nil && strings.TrimSpace(*req.BillNumber) != "" {
		doc.BillNumber = strings.TrimSpace(*req.BillNumber)
	} else {
		number, err := s.numbers.Next(ctx, req.OrgID, docType)
		if err != nil {
			return nil, err
		}
		doc.BillNumber = number
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertBill(ctx, doc); err != nil {
			return err
		}
		if err := s.resolvePayments(ctx, tx, doc, slots, createdBy); err != nil {
			return err
		}
		if status == StatusIssued {
			return applyStock(ctx, tx, doc, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == StatusIssued {
		_ = s.events.BillIssued(ctx, eventFrom(doc))
	}
	s.invalidateSummaries(ctx)

	return s.store.GetBillWithPayments(ctx, docType, doc.ID)
}

// Update mutates a draft bill. Outside draft the only permitted change is a
// forward status transition with no other field set: issued bills can move to
// cancelled (reversing committed stock) or refunded.
func (s *Service) Update(ctx context.Context, docType DocumentType, id int64, req UpdateBillRequest, createdBy int64) (*BillWithPayments, error) {
	cur, err := s.store.GetBill(ctx, docType, id)
	if err != nil {
		return nil, err
	}

	if cur.Status != StatusDraft {
		return s.updateStatusOnly(ctx, docType, cur, req)
	}

	if req.PartyID != nil {
		if err := s.directory.PartyExists(ctx, *req.PartyID); err != nil {
			return nil, err
		}
		cur.PartyID = *req.PartyID
	}

	// The document discount has to be split out of the stored rollup while
	// the old items (and their line discounts) are still in place.
	docDiscount := documentDiscount(cur)

	var calcLines []CalcLine
	if req.Items != nil {
		items, lines, err := s.snapshotItems(ctx, *req.Items)
		if err != nil {
			return nil, err
		}
		cur.Items = items
		calcLines = lines
	} else {
		calcLines = calcLinesFrom(cur.Items)
	}

	if req.PaymentType != nil {
		cur.PaymentType = *req.PaymentType
	}
	if req.Advance != nil {
		cur.Advance = *req.Advance
	}
	if req.Discount != nil {
		docDiscount = *req.Discount
	}
	if req.RoundOff != nil {
		cur.RoundOff = *req.RoundOff
	}
	if req.Notes != nil {
		cur.Notes = req.Notes
	}
	if req.DueDate != nil {
		cur.DueDate = req.DueDate
	}

	amounts, totals := Calculate(calcLines, docDiscount, cur.RoundOff)
	applyAmounts(cur.Items, amounts)
	cur.Subtotal = totals.Subtotal
	cur.Discount = totals.Discount
	cur.GSTTotal = totals.GSTTotal
	cur.CGST = totals.CGST
	cur.SGST = totals.SGST
	cur.IGST = totals.IGST
	cur.RoundOff = totals.RoundOff
	cur.GrandTotal = totals.GrandTotal
	if cur.PaymentType == PaymentTypeAdvance {
		cur.Balance = cur.GrandTotal - cur.Advance
	} else {
		cur.Balance = 0
	}

	target := cur.Status
	if req.Status != nil {
		target = *req.Status
		if target != StatusDraft && target != StatusIssued {
			return nil, fmt.Errorf("%w: draft bills move to issued, not %q", ErrInvalidStatus, target)
		}
	}
	cur.Status = target

	slots := []paymentSlot{
		{payments.RoleAdvance, req.AdvancePayment, firstID(req.AdvancePaymentID, cur.AdvancePaymentID)},
		{payments.RoleBalance, req.BalancePayment, firstID(req.BalancePaymentID, cur.BalancePaymentID)},
		{payments.RoleFull, req.FullPayment, firstID(req.FullPaymentID, cur.FullPaymentID)},
	}
	if err := validatePaymentPlan(cur, slots, target); err != nil {
		return nil, err
	}

	issuing := target == StatusIssued

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateBill(ctx, cur); err != nil {
			return err
		}
		if err := s.resolvePayments(ctx, tx, cur, slots, createdBy); err != nil {
			return err
		}
		if issuing {
			return applyStock(ctx, tx, cur, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if issuing {
		_ = s.events.BillIssued(ctx, eventFrom(cur))
	}
	s.invalidateSummaries(ctx)

	return s.store.GetBillWithPayments(ctx, docType, id)
}

func (s *Service) updateStatusOnly(ctx context.Context, docType DocumentType, cur *BillingDocument, req UpdateBillRequest) (*BillWithPayments, error) {
	if !statusOnly(req) {
		return nil, fmt.Errorf("%w: bill %s is %s", ErrImmutableDocument, cur.BillNumber, cur.Status)
	}

	switch cur.Status {
	case StatusIssued:
	case StatusRefunded:
		return nil, ErrRefundedImmutable
	default:
		return nil, fmt.Errorf("%w: bill %s is %s", ErrImmutableDocument, cur.BillNumber, cur.Status)
	}

	switch *req.Status {
	case StatusCancelled:
		if err := s.Cancel(ctx, docType, cur.ID); err != nil {
			return nil, err
		}
	case StatusRefunded:
		if err := s.Refund(ctx, docType, cur.ID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: issued bills move to cancelled or refunded, not %q", ErrInvalidStatus, *req.Status)
	}
	return s.store.GetBillWithPayments(ctx, docType, cur.ID)
}

// Cancel marks an issued bill cancelled. Stock committed at issue time is
// reversed exactly once, in the same transaction as the status flip. Drafts
// never committed stock and are discarded through delete instead.
func (s *Service) Cancel(ctx context.Context, docType DocumentType, id int64) error {
	cur, err := s.store.GetBill(ctx, docType, id)
	if err != nil {
		return err
	}

	switch cur.Status {
	case StatusIssued:
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusRefunded:
		return ErrRefundedImmutable
	default:
		return fmt.Errorf("%w: only issued bills can be cancelled, bill is %s", ErrInvalidStatus, cur.Status)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		return applyStock(ctx, tx, cur, false)
	})
	if err != nil {
		return err
	}

	_ = s.events.BillCancelled(ctx, eventFrom(cur))
	s.invalidateSummaries(ctx)
	return nil
}

// Refund marks an issued bill refunded. Stock stays adjusted: the goods moved
// and the refund records the money flow, not a reversal.
func (s *Service) Refund(ctx context.Context, docType DocumentType, id int64) error {
	cur, err := s.store.GetBill(ctx, docType, id)
	if err != nil {
		return err
	}

	switch cur.Status {
	case StatusIssued:
	case StatusRefunded:
		return ErrRefundedImmutable
	default:
		return fmt.Errorf("%w: only issued bills can be refunded, bill is %s", ErrInvalidStatus, cur.Status)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, id, StatusRefunded)
	})
	if err != nil {
		return err
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Delete soft-deletes a draft or cancelled bill. The row survives for audit,
// reads stop returning it, and its bill number is never reissued. Stock is
// untouched: drafts never committed any and cancelled bills already reversed
// theirs.
func (s *Service) Delete(ctx context.Context, docType DocumentType, id int64) error {
	cur, err := s.store.GetBill(ctx, docType, id)
	if err != nil {
		return err
	}

	if cur.Status != StatusDraft && cur.Status != StatusCancelled {
		return fmt.Errorf("%w: bill %s is %s", ErrDeleteNotAllowed, cur.BillNumber, cur.Status)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Get loads one bill with its payment records.
func (s *Service) Get(ctx context.Context, docType DocumentType, id int64) (*BillWithPayments, error) {
	return s.store.GetBillWithPayments(ctx, docType, id)
}

// List returns bills matching the filters plus the total match count.
func (s *Service) List(ctx context.Context, docType DocumentType, req ListBillsRequest) ([]BillingDocument, int, error) {
	return s.store.ListBills(ctx, docType, req)
}

// Summary aggregates one bill type, through the cache when configured.
func (s *Service) Summary(ctx context.Context, docType DocumentType, req SummaryRequest) (Summary, error) {
	if s.summaries == nil {
		return s.store.Summary(ctx, docType, req)
	}
	return s.summaries.GetOrCompute(ctx, docType, req, func() (Summary, error) {
		return s.store.Summary(ctx, docType, req)
	})
}

// CombinedSummary aggregates both bill types concurrently.
func (s *Service) CombinedSummary(ctx context.Context, req SummaryRequest) (CombinedSummary, error) {
	var out CombinedSummary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s2, err := s.Summary(ctx, DocTypeSale, req)
		out.SaleBills = s2
		return err
	})
	g.Go(func() error {
		s2, err := s.Summary(ctx, DocTypePurchase, req)
		out.PurchaseBills = s2
		return err
	})
	if err := g.Wait(); err != nil {
		return CombinedSummary{}, err
	}
	return out, nil
}

func (s *Service) invalidateSummaries(ctx context.Context) {
	if s.summaries != nil {
		s.summaries.Invalidate(ctx)
	}
}

// snapshotItems resolves every product reference and copies name, HSN code
// and (when not overridden) price onto the line. A missing product fails the
// whole request with its id.
func (s *Service) snapshotItems(ctx context.Context, reqs []CreateLineItemRequest) ([]LineItem, []CalcLine, error) {
	if len(reqs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one product is required", ErrValidation)
	}

	items := make([]LineItem, len(reqs))
	lines := make([]CalcLine, len(reqs))
	for i, r := range reqs {
		product, err := s.catalog.GetProduct(ctx, r.ProductID)
		if err != nil {
			return nil, nil, err
		}

		price := product.Price
		if r.UnitPrice != nil {
			price = *r.UnitPrice
		}
		discountType := r.DiscountType
		if discountType == "" {
			discountType = DiscountPercentage
		}
		taxType := r.TaxType
		if taxType == "" {
			taxType = TaxTypeGST
		}

		items[i] = LineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			HSNCode:      product.HSNCode,
			Quantity:     r.Quantity,
			UnitPrice:    price,
			Discount:     r.Discount,
			DiscountType: discountType,
			TaxRate:      r.TaxRate,
			TaxType:      taxType,
			LineOrder:    i,
		}
		lines[i] = CalcLine{
			Quantity:     r.Quantity,
			UnitPrice:    price,
			Discount:     r.Discount,
			DiscountType: discountType,
			TaxRate:      r.TaxRate,
			TaxType:      taxType,
		}
	}
	return items, lines, nil
}

func applyAmounts(items []LineItem, amounts []LineAmounts) {
	for i := range items {
		items[i].DiscountAmount = amounts[i].DiscountAmount
		items[i].Subtotal = amounts[i].Subtotal
		items[i].CGST = amounts[i].CGST
		items[i].SGST = amounts[i].SGST
		items[i].IGST = amounts[i].IGST
		items[i].TaxAmount = amounts[i].TaxAmount
		items[i].Total = amounts[i].Total
	}
}

func calcLinesFrom(items []LineItem) []CalcLine {
	lines := make([]CalcLine, len(items))
	for i, it := range items {
		lines[i] = CalcLine{
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			Discount:     it.Discount,
			DiscountType: it.DiscountType,
			TaxRate:      it.TaxRate,
			TaxType:      it.TaxType,
		}
	}
	return lines
}

// documentDiscount recovers the document-level share of the stored discount
// rollup, which persists line discounts and the document discount summed.
func documentDiscount(doc *BillingDocument) float64 {
	var lineDiscounts float64
	for _, it := range doc.Items {
		lineDiscounts += it.DiscountAmount
	}
	d := doc.Discount - lineDiscounts
	if d < 0 {
		return 0
	}
	return d
}

// validatePaymentPlan enforces the slot shape for the payment type. The rules
// bind when the bill is (or becomes) issued; drafts may leave slots open.
//
//	full:    the full slot is required, advance and balance stay empty.
//	advance: advance must be positive and below the grand total, a due date is
//	         required, the advance slot is required, and the balance slot is
//	         required while any balance remains.
func validatePaymentPlan(doc *BillingDocument, slots []paymentSlot, status Status) error {
	for _, slot := range slots {
		if slot.inline != nil {
			if err := payments.ValidateMethodFields(*slot.inline); err != nil {
				return err
			}
		}
	}

	if status != StatusIssued {
		return nil
	}

	has := func(role payments.Role) bool {
		for _, slot := range slots {
			if slot.role == role {
				return slot.inline != nil || slot.existing != nil
			}
		}
		return false
	}

	switch doc.PaymentType {
	case PaymentTypeFull:
		if !has(payments.RoleFull) {
			return fmt.Errorf("%w: full payment is required for payment_type full", ErrValidation)
		}
		if has(payments.RoleAdvance) || has(payments.RoleBalance) {
			return fmt.Errorf("%w: advance and balance payments are not allowed for payment_type full", ErrValidation)
		}
	case PaymentTypeAdvance:
		if doc.Advance <= 0 {
			return fmt.Errorf("%w: advance must be positive for payment_type advance", ErrValidation)
		}
		if doc.Advance > doc.GrandTotal {
			return fmt.Errorf("%w: advance %.2f exceeds grand total %.2f", ErrValidation, doc.Advance, doc.GrandTotal)
		}
		if doc.DueDate == nil {
			return fmt.Errorf("%w: due_date is required for payment_type advance", ErrValidation)
		}
		if !has(payments.RoleAdvance) {
			return fmt.Errorf("%w: advance payment is required for payment_type advance", ErrValidation)
		}
		if doc.Balance > 0 && !has(payments.RoleBalance) {
			return fmt.Errorf("%w: balance payment is required while a balance remains", ErrValidation)
		}
		if has(payments.RoleFull) {
			return fmt.Errorf("%w: full payment is not allowed for payment_type advance", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown payment_type %q", ErrValidation, doc.PaymentType)
	}
	return nil
}

// resolvePayments creates inline payment records or links existing ones and
// writes the slot references onto the bill row. An existing record may fill
// each role on at most one bill; a conflict aborts the transaction.
func (s *Service) resolvePayments(ctx context.Context, tx TxRepository, doc *BillingDocument, slots []paymentSlot, createdBy int64) error {
	var saleRef, purchaseRef *int64
	if doc.DocType == DocTypeSale {
		saleRef = &doc.ID
	} else {
		purchaseRef = &doc.ID
	}

	resolved := map[payments.Role]*int64{}
	for _, slot := range slots {
		switch {
		case slot.inline != nil:
			rec, err := payments.BuildRecord(*slot.inline, createdBy)
			if err != nil {
				return err
			}
			rec.SaleBillID = saleRef
			rec.PurchaseBillID = purchaseRef
			if rec.OrgID == nil {
				rec.OrgID = &doc.OrgID
			}
			id, err := tx.CreatePayment(ctx, rec)
			if err != nil {
				return err
			}
			resolved[slot.role] = &id
		case slot.existing != nil:
			id := *slot.existing
			if _, err := tx.GetPayment(ctx, id); err != nil {
				return err
			}
			taken, err := tx.PaymentRoleTaken(ctx, id, slot.role, doc.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: payment %d already fills the %s slot on another bill", payments.ErrPaymentAlreadyLinked, id, slot.role)
			}
			if err := tx.LinkPayment(ctx, id, saleRef, purchaseRef); err != nil {
				return err
			}
			resolved[slot.role] = &id
		}
	}

	doc.AdvancePaymentID = resolved[payments.RoleAdvance]
	doc.BalancePaymentID = resolved[payments.RoleBalance]
	doc.FullPaymentID = resolved[payments.RoleFull]
	return tx.SetPaymentRefs(ctx, doc.ID, doc.AdvancePaymentID, doc.BalancePaymentID, doc.FullPaymentID)
}

func applyStock(ctx context.Context, tx TxRepository, doc *BillingDocument, issue bool) error {
	direction := stockDirection(doc.DocType, issue)
	for _, it := range doc.Items {
		if _, err := tx.AdjustStock(ctx, it.ProductID, it.Quantity, direction); err != nil {
			return err
		}
	}
	return nil
}

func statusOnly(req UpdateBillRequest) bool {
	return req.Status != nil &&
		req.PartyID == nil && req.Items == nil &&
		req.PaymentType == nil && req.Advance == nil && req.Balance == nil &&
		req.AdvancePayment == nil && req.BalancePayment == nil && req.FullPayment == nil &&
		req.AdvancePaymentID == nil && req.BalancePaymentID == nil && req.FullPaymentID == nil &&
		req.Discount == nil && req.RoundOff == nil &&
		req.Notes == nil && req.DueDate == nil
}

func firstID(override, current *int64) *int64 {
	if override != nil {
		return override
	}
	return current
}
