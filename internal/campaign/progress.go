package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicesurvey-platform/internal/callrecord"
)

// ProgressCache mirrors live campaign progress into Redis so dashboards can
// poll call statuses without hitting Postgres per request.
//
// Layout: one hash per survey, keyed campaign:<survey_id>, field per contact,
// value the latest call status. The hash is advisory; the store remains the
// source of truth and the TTL lets abandoned campaigns age out.
type ProgressCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProgressCache(rdb *redis.Client, ttl time.Duration) *ProgressCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProgressCache{rdb: rdb, ttl: ttl}
}

func progressKey(surveyID string) string { return "campaign:" + surveyID }

// SetCallStatus records the latest status for one contact's call.
func (p *ProgressCache) SetCallStatus(ctx context.Context, surveyID, contactID string, status callrecord.Status) error {
	if p.rdb == nil {
		return fmt.Errorf("campaign: redis client is nil")
	}
	key := progressKey(surveyID)
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key, contactID, string(status))
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Progress returns contact id to latest status for a survey. An empty map
// means no campaign progress is cached.
func (p *ProgressCache) Progress(ctx context.Context, surveyID string) (map[string]callrecord.Status, error) {
	if p.rdb == nil {
		return nil, fmt.Errorf("campaign: redis client is nil")
	}
	raw, err := p.rdb.HGetAll(ctx, progressKey(surveyID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]callrecord.Status, len(raw))
	for contactID, s := range raw {
		out[contactID] = callrecord.Status(s)
	}
	return out, nil
}

// Clear drops the cached progress for a survey.
func (p *ProgressCache) Clear(ctx context.Context, surveyID string) error {
	if p.rdb == nil {
		return fmt.Errorf("campaign: redis client is nil")
	}
	return p.rdb.Del(ctx, progressKey(surveyID)).Err()
}
