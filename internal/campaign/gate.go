package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicesurvey-platform/pkg/utils"
)

// Gate caps the number of campaigns an org can run at the same time.
// The counter lives in Redis so the cap holds across API replicas.
//
// The TTL is a safety net: if a process dies mid-campaign without
// releasing, the slot frees itself once the TTL lapses.
type Gate struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewGate(rdb *redis.Client, limit int, ttl time.Duration) *Gate {
	if limit <= 0 {
		limit = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Gate{rdb: rdb, limit: limit, ttl: ttl}
}

func gateKey(orgID string) string {
	return "org_campaigns:" + orgID
}

// Acquire reserves a campaign slot for the org. Returns false when the
// org is already at its concurrent-campaign limit.
func (g *Gate) Acquire(ctx context.Context, orgID string) (bool, error) {
	if g == nil || g.rdb == nil {
		return false, fmt.Errorf("campaign gate: redis client is nil")
	}
	if orgID == "" {
		return false, fmt.Errorf("campaign gate: org id is required")
	}
	return utils.AcquireConcurrencyCap(ctx, g.rdb, gateKey(orgID), g.limit, g.ttl)
}

// Release frees a slot taken by Acquire. Callers must release exactly
// once per successful Acquire.
func (g *Gate) Release(ctx context.Context, orgID string) error {
	if g == nil || g.rdb == nil {
		return fmt.Errorf("campaign gate: redis client is nil")
	}
	return utils.ReleaseConcurrencyCap(ctx, g.rdb, gateKey(orgID))
}
