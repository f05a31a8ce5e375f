// Package sequence issues tenant-scoped bill numbers backed by an atomic
// counter table. Numbers are monotonically increasing per (org, document type)
// and are never reused, even when the bill they were issued for is deleted.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentType identifies a counter series within an organization.
type DocumentType string

const (
	DocTypeSaleBill     DocumentType = "salebill"
	DocTypePurchaseBill DocumentType = "purchasebill"
)

// ErrSequenceUnavailable indicates the counter store could not issue a number.
// Callers must fail the whole operation rather than fabricate one.
var ErrSequenceUnavailable = errors.New("bill number sequence unavailable")

var docTypeTags = map[DocumentType]string{
	DocTypeSaleBill:     "SB",
	DocTypePurchaseBill: "PB",
}

// Tag returns the human-facing prefix for a document type.
func (t DocumentType) Tag() string {
	if tag, ok := docTypeTags[t]; ok {
		return tag
	}
	return "BILL"
}

// Valid reports whether the document type names a known series.
func (t DocumentType) Valid() bool {
	_, ok := docTypeTags[t]
	return ok
}

// Generator issues bill numbers against PostgreSQL.
type Generator struct {
	pool *pgxpool.Pool
}

// NewGenerator constructs a Generator.
func NewGenerator(pool *pgxpool.Pool) *Generator {
	return &Generator{pool: pool}
}

// Next atomically increments the counter for (orgID, docType), creating it on
// first use, and returns the formatted bill number. The increment happens in a
// single statement so two concurrent callers can never observe the same value.
func (g *Generator) Next(ctx context.Context, orgID int64, docType DocumentType) (string, error) {
	const query = `
		INSERT INTO bill_sequences (org_id, doc_type, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (org_id, doc_type)
		DO UPDATE SET seq = bill_sequences.seq + 1
		RETURNING seq
	`
	var seq int64
	if err := g.pool.QueryRow(ctx, query, orgID, string(docType)).Scan(&seq); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSequenceUnavailable, err)
	}
	return Format(docType, seq), nil
}

// Format renders a sequence value as a bill number, e.g. SB-00042.
func Format(docType DocumentType, seq int64) string {
	return fmt.Sprintf("%s-%05d", docType.Tag(), seq)
}
