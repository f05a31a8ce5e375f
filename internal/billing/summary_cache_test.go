package billing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *SummaryCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSummaryCache(rdb, time.Minute, slog.Default())
}

func TestSummaryCacheMemoizes(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (Summary, error) {
		calls++
		return Summary{TotalBills: 3, TotalAmount: 450}, nil
	}

	first, err := cache.GetOrCompute(ctx, DocTypeSale, SummaryRequest{}, compute)
	require.NoError(t, err)
	require.Equal(t, 3, first.TotalBills)

	second, err := cache.GetOrCompute(ctx, DocTypeSale, SummaryRequest{}, compute)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestSummaryCacheScopesByTypeAndOrg(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	saleCalls, purchaseCalls := 0, 0
	_, err := cache.GetOrCompute(ctx, DocTypeSale, SummaryRequest{}, func() (Summary, error) {
		saleCalls++
		return Summary{TotalBills: 1}, nil
	})
	require.NoError(t, err)

	_, err = cache.GetOrCompute(ctx, DocTypePurchase, SummaryRequest{}, func() (Summary, error) {
		purchaseCalls++
		return Summary{TotalBills: 2}, nil
	})
	require.NoError(t, err)

	org := int64(7)
	_, err = cache.GetOrCompute(ctx, DocTypeSale, SummaryRequest{OrgID: &org}, func() (Summary, error) {
		saleCalls++
		return Summary{TotalBills: 5}, nil
	})
	require.NoError(t, err)

	require.Equal(t, 2, saleCalls)
	require.Equal(t, 1, purchaseCalls)
}

func TestSummaryCacheInvalidateForcesRecompute(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (Summary, error) {
		calls++
		return Summary{TotalBills: calls}, nil
	}

	_, err := cache.GetOrCompute(ctx, DocTypeSale, SummaryRequest{}, compute)
	require.NoError(t, err)

	cache.Invalidate(ctx)

	refreshed, err := cache.GetOrCompute(ctx, DocTypeSale, SummaryRequest{}, compute)
	require.NoError(t, err)
	require.Equal(t, 2, refreshed.TotalBills)
	require.Equal(t, 2, calls)
}
