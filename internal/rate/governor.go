package rate

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is one governor decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Governor bounds request frequency per caller key using shared Redis
// counters. It holds no in-process state and is safe for concurrent use.
type Governor struct {
	redis  redis.UniversalClient
	prefix string

	// onFailOpen is invoked once per decision taken without Redis, for
	// metric accounting. May be nil.
	onFailOpen func()
}

// New creates a [Governor] backed by the given Redis client.
func New(client redis.UniversalClient, prefix string, onFailOpen func()) *Governor {
	return &Governor{
		redis:      client,
		prefix:     prefix,
		onFailOpen: onFailOpen,
	}
}

func (g *Governor) key(key string) string {
	return g.prefix + ":rl:" + key
}

// Check counts one request against the key's fixed window and reports the
// decision. The counter key is created lazily by the first request; its TTL
// pins the window boundary to that first increment.
func (g *Governor) Check(ctx context.Context, key string, limit int, window time.Duration) Result {
	k := g.key(key)

	count, err := g.redis.Incr(ctx, k).Result()
	if err != nil {
		return g.failOpen(limit, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := g.redis.Expire(ctx, k, window).Err(); err != nil {
			// The counter would otherwise live forever; drop it rather than
			// leak an unbounded key, then fail open.
			_ = g.redis.Del(ctx, k).Err()
			return g.failOpen(limit, err)
		}
	}

	resetAfter, err := g.redis.PTTL(ctx, k).Result()
	if err != nil {
		return g.failOpen(limit, err)
	}
	if resetAfter < 0 {
		resetAfter = 0
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}
}

func (g *Governor) failOpen(limit int, err error) Result {
	log.Printf("[authgate] rate governor: store unavailable, failing open: %v", err)
	if g.onFailOpen != nil {
		g.onFailOpen()
	}

	// Advisory only: the request was not counted, but it did happen, so
	// report the budget as if it had been.
	remaining := limit - 1
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
	}
}
