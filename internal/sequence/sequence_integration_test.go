package sequence

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billforge/billforge/internal/platform/db"
)

// newIntegrationGenerator connects to the database named by TEST_PG_DSN and
// skips the test when the variable is unset, so the suite stays runnable
// without a local PostgreSQL.
func newIntegrationGenerator(t *testing.T) *Generator {
	t.Helper()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bill_sequences (
			org_id   BIGINT NOT NULL,
			doc_type TEXT   NOT NULL,
			seq      BIGINT NOT NULL,
			PRIMARY KEY (org_id, doc_type)
		)
	`)
	require.NoError(t, err)

	return NewGenerator(pool)
}

func TestNextConcurrentCallsAreDistinctAndConsecutive(t *testing.T) {
	gen := newIntegrationGenerator(t)
	ctx := context.Background()

	// A fresh org per run keeps the counter series independent of whatever
	// else lives in the target database.
	orgID := time.Now().UnixNano()

	const n = 25
	numbers := make([]string, n)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			numbers[i], errs[i] = gen.Next(ctx, orgID, DocTypeSaleBill)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	sort.Strings(numbers)
	for i := 0; i < n; i++ {
		require.Equal(t, Format(DocTypeSaleBill, int64(i+1)), numbers[i])
	}
}

func TestNextSeriesAreIndependentPerDocType(t *testing.T) {
	gen := newIntegrationGenerator(t)
	ctx := context.Background()

	orgID := time.Now().UnixNano()

	sale, err := gen.Next(ctx, orgID, DocTypeSaleBill)
	require.NoError(t, err)
	purchase, err := gen.Next(ctx, orgID, DocTypePurchaseBill)
	require.NoError(t, err)

	require.Equal(t, "SB-00001", sale)
	require.Equal(t, "PB-00001", purchase)
}
