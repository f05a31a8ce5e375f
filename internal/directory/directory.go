// Package directory exposes narrow existence checks against the organization
// and party records owned by the wider platform. Billing only validates
// references; it never mutates these collections.
package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrOrganizationNotFound indicates an unknown organization reference.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrPartyNotFound indicates an unknown customer/vendor reference.
	ErrPartyNotFound = errors.New("party not found")
)

// Directory answers reference-existence queries.
type Directory struct {
	pool *pgxpool.Pool
}

// New constructs a Directory.
func New(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// OrganizationExists verifies an organization id.
func (d *Directory) OrganizationExists(ctx context.Context, id int64) error {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrOrganizationNotFound
	}
	return nil
}

// PartyExists verifies a customer/vendor id.
func (d *Directory) PartyExists(ctx context.Context, id int64) error {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM parties WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrPartyNotFound
	}
	return nil
}
