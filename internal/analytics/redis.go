// Package analytics records per-file outcome counters in Redis for
// operator dashboards. It is a best-effort side channel: failures are
// logged by callers and never affect run correctness.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// DefaultRetention is the TTL applied to outcome counter keys.
const DefaultRetention = 30 * 24 * time.Hour

type RedisSink struct {
	client    *redis.Client
	retention time.Duration
	clock     func() time.Time
}

func NewRedisSink(client *redis.Client, retention time.Duration) *RedisSink {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisSink{client: client, retention: retention, clock: time.Now}
}

// Record increments the hourly outcome counter for (project, status).
func (s *RedisSink) Record(ctx context.Context, project, fileName string, status domain.FileStatus) error {
	key := buildKey(project, status, s.clock())

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func buildKey(project string, status domain.FileStatus, t time.Time) string {
	return fmt.Sprintf("bp:%s:%s:%s", project, status, t.UTC().Format("2006010215"))
}
