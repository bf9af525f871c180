package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every store-level failure. The verifier maps it
// to its fail-closed server-error kind; it must never be interpreted as
// "not revoked".
var ErrRedisUnavailable = errors.New("redis unavailable")

// setMarkerScript writes the invalidate-after marker only if the new
// timestamp is not older than the stored one. A concurrent later logout-all
// can therefore never be regressed by an earlier write arriving out of order.
const setMarkerScript = `
local current = tonumber(redis.call("GET", KEYS[1]))
if current and current >= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`

var setMarkerLua = redis.NewScript(setMarkerScript)

// Store is the Redis-backed revocation state shared by every process of the
// service. It holds no authoritative in-process copies; all correctness
// derives from Redis primitives.
type Store struct {
	redis  redis.UniversalClient
	prefix string

	// maxTokenTTL plus leeway bounds how long any token can still be
	// accepted by the verifier. Revocation state must outlive that window:
	// a record that expires at exp while the verifier tolerates clock skew
	// until exp+leeway would let a revoked token authorize again.
	maxTokenTTL time.Duration
	leeway      time.Duration
}

// NewStore creates a revocation [Store] on the given Redis client. prefix
// namespaces the keys; maxTokenTTL must be the largest token lifetime
// configured anywhere in the system, and leeway the verifier's clock-skew
// tolerance.
func NewStore(client redis.UniversalClient, prefix string, maxTokenTTL, leeway time.Duration) *Store {
	return &Store{
		redis:       client,
		prefix:      prefix,
		maxTokenTTL: maxTokenTTL,
		leeway:      leeway,
	}
}

func (s *Store) sessionKey(sid string) string {
	return s.prefix + ":rv:" + sid
}

func (s *Store) subjectKey(subject string) string {
	return s.prefix + ":ia:" + subject
}

// RevokeSession blacklists one session until the verifier stops accepting
// the token. The record TTL is exp-now plus the clock-skew leeway; a token
// inside its post-expiry leeway window is still accepted by the verifier, so
// its record must be written too. Only a token past exp+leeway, which can
// never authorize again, is a no-op.
func (s *Store) RevokeSession(ctx context.Context, sid string, exp time.Time) error {
	ttl := time.Until(exp) + s.leeway
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.sessionKey(sid), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the session id is blacklisted. Pure existence
// check; a missing key means not revoked.
func (s *Store) IsRevoked(ctx context.Context, sid string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.sessionKey(sid)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// InvalidateAllSessions moves the subject's invalidate-after marker to at.
// Tokens issued strictly before the marker are revoked by the verifier.
// The marker lives for maxTokenTTL plus leeway, the last instant any token
// issued before it can still be accepted, and compares at second granularity,
// the native precision of the iat claim.
func (s *Store) InvalidateAllSessions(ctx context.Context, subject string, at time.Time) error {
	err := setMarkerLua.Run(ctx, s.redis,
		[]string{s.subjectKey(subject)},
		at.Unix(),
		(s.maxTokenTTL + s.leeway).Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// InvalidatedAfter returns the subject's marker. ok is false when no
// logout-everywhere is in effect.
func (s *Store) InvalidatedAfter(ctx context.Context, subject string) (time.Time, bool, error) {
	val, err := s.redis.Get(ctx, s.subjectKey(subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: corrupt marker %q", ErrRedisUnavailable, val)
	}
	return time.Unix(unix, 0), true, nil
}
