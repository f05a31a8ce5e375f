package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AdjustStock applies a stock delta to a product on the caller's querier,
// which is normally the transaction carrying the bill mutation. Subtracting
// clamps the quantity at zero and flips an exhausted product to out_of_stock
// unless it is archived; adding back above zero reactivates it. Returns the
// updated quantity.
func AdjustStock(ctx context.Context, q Querier, productID int64, qty float64, direction StockDirection) (float64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("catalog: adjust stock: quantity must be positive, got %v", qty)
	}

	var query string
	switch direction {
	case StockAdd:
		query = `
			UPDATE products
			SET quantity = quantity + $2,
			    status = CASE
			        WHEN status = 'out_of_stock' AND quantity + $2 > 0 THEN 'active'
			        ELSE status
			    END,
			    updated_at = now()
			WHERE id = $1
			RETURNING quantity
		`
	case StockSubtract:
		query = `
			UPDATE products
			SET quantity = GREATEST(quantity - $2, 0),
			    status = CASE
			        WHEN quantity - $2 <= 0 AND status <> 'archived' THEN 'out_of_stock'
			        ELSE status
			    END,
			    updated_at = now()
			WHERE id = $1
			RETURNING quantity
		`
	default:
		return 0, fmt.Errorf("catalog: adjust stock: unknown direction %q", direction)
	}

	var updated float64
	if err := q.QueryRow(ctx, query, productID, qty).Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return 0, fmt.Errorf("catalog: adjust stock: %w", err)
	}
	return updated, nil
}
