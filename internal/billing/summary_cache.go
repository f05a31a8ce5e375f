package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryVersionKey = "billforge:summary:version"

// SummaryCache memoizes summary aggregates in Redis. Invalidation bumps a
// version counter instead of scanning for keys, so stale entries simply age
// out under their TTL.
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewSummaryCache constructs a SummaryCache.
func NewSummaryCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *SummaryCache {
	return &SummaryCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *SummaryCache) key(ctx context.Context, docType DocumentType, req SummaryRequest) string {
	version, err := c.rdb.Get(ctx, summaryVersionKey).Int64()
	if err != nil && err != redis.Nil {
		c.log.Warn("summary cache version read failed", "error", err)
	}

	org := int64(0)
	if req.OrgID != nil {
		org = *req.OrgID
	}
	start, end := "", ""
	if req.StartDate != nil {
		start = req.StartDate.UTC().Format(time.RFC3339)
	}
	if req.EndDate != nil {
		end = req.EndDate.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("billforge:summary:v%d:%s:%d:%s:%s", version, docType, org, start, end)
}

// GetOrCompute returns the cached summary for the scope, computing and
// storing it on a miss. Cache failures degrade to the computed value.
func (c *SummaryCache) GetOrCompute(ctx context.Context, docType DocumentType, req SummaryRequest, compute func() (Summary, error)) (Summary, error) {
	key := c.key(ctx, docType, req)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var s Summary
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
	} else if err != redis.Nil {
		c.log.Warn("summary cache read failed", "key", key, "error", err)
	}

	s, err := compute()
	if err != nil {
		return Summary{}, err
	}

	if raw, err := json.Marshal(s); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("summary cache write failed", "key", key, "error", err)
		}
	}
	return s, nil
}

// Invalidate drops every cached summary by bumping the version counter.
func (c *SummaryCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, summaryVersionKey).Err(); err != nil {
		c.log.Warn("summary cache invalidation failed", "error", err)
	}
}
