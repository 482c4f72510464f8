package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Limiter as a distributed token bucket over a Redis
// sorted set, the same "limiter_redis" pattern the teacher applies in
// its own kernel package: each Wait call evicts expired entries and
// admits itself only if fewer than `capacity` entries remain in the
// current window.
type Redis struct {
	client   *redis.Client
	key      string
	capacity int
	window   time.Duration
}

// NewRedis returns a Limiter sharing `capacity` admissions per window
// across every process using the same key against the same Redis
// instance — for bounding outbound sync-API call rate across multiple
// orchestrator processes, not for coordinating step placement.
func NewRedis(client *redis.Client, key string, capacity int, window time.Duration) *Redis {
	return &Redis{client: client, key: key, capacity: capacity, window: window}
}

func (r *Redis) Wait(ctx context.Context) error {
	for {
		ok, err := r.tryAdmit(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Redis) tryAdmit(ctx context.Context) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-r.window)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, r.key, "0", fmt.Sprint(cutoff.UnixNano()))
	count := pipe.ZCard(ctx, r.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("limiter: redis pipeline: %w", err)
	}

	if int(count.Val()) >= r.capacity {
		return false, nil
	}

	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond())
	if err := r.client.ZAdd(ctx, r.key, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		return false, fmt.Errorf("limiter: redis zadd: %w", err)
	}
	return true, nil
}

// Done is a no-op: admission window entries expire naturally via Wait's
// ZRemRangeByScore rather than requiring an explicit release.
func (r *Redis) Done() {}
