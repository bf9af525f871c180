package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, leeway time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "ag", time.Hour, leeway), mr
}

func TestRevokeSessionLifecycle(t *testing.T) {
	store, mr := newTestStore(t, 0)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "sid-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("fresh sid reported revoked")
	}

	if err := store.RevokeSession(ctx, "sid-1", time.Now().Add(30*time.Minute)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	revoked, err = store.IsRevoked(ctx, "sid-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("revoked sid not reported revoked")
	}

	// The record must self-expire with the token's remaining lifetime.
	ttl := mr.TTL("ag:rv:sid-1")
	if ttl <= 0 || ttl > 30*time.Minute {
		t.Errorf("record TTL = %v, want (0, 30m]", ttl)
	}

	mr.FastForward(31 * time.Minute)

	revoked, err = store.IsRevoked(ctx, "sid-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("record survived past token expiry")
	}
}

func TestRevokeSessionExpiredTokenIsNoOp(t *testing.T) {
	store, mr := newTestStore(t, 0)
	ctx := context.Background()

	if err := store.RevokeSession(ctx, "sid-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	if mr.Exists("ag:rv:sid-old") {
		t.Error("no-op revocation wrote a record")
	}
}

func TestRevokeSessionCoversLeewayWindow(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	// The verifier tolerates clock skew until exp+leeway, so the record must
	// live that long too.
	if err := store.RevokeSession(ctx, "sid-live", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	ttl := mr.TTL("ag:rv:sid-live")
	if ttl <= time.Minute || ttl > time.Minute+30*time.Second {
		t.Errorf("record TTL = %v, want (1m, 1m30s]", ttl)
	}

	// A token past exp but inside leeway still authorizes; revoking it must
	// write a record, not no-op.
	if err := store.RevokeSession(ctx, "sid-skew", time.Now().Add(-10*time.Second)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if !mr.Exists("ag:rv:sid-skew") {
		t.Fatal("revocation inside the leeway window wrote no record")
	}

	// Past exp+leeway the token can never authorize again; only then is the
	// no-op safe.
	if err := store.RevokeSession(ctx, "sid-dead", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if mr.Exists("ag:rv:sid-dead") {
		t.Error("revocation past the acceptance window wrote a record")
	}
}

func TestInvalidateAllSessionsMarker(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Second)
	ctx := context.Background()

	if _, ok, err := store.InvalidatedAfter(ctx, "user-1"); err != nil || ok {
		t.Fatalf("InvalidatedAfter on empty store = ok=%v err=%v, want absent", ok, err)
	}

	at := time.Now()
	if err := store.InvalidateAllSessions(ctx, "user-1", at); err != nil {
		t.Fatalf("InvalidateAllSessions failed: %v", err)
	}

	marker, ok, err := store.InvalidatedAfter(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("InvalidatedAfter = ok=%v err=%v, want present", ok, err)
	}
	if marker.Unix() != at.Unix() {
		t.Errorf("marker = %v, want %v", marker.Unix(), at.Unix())
	}

	// Marker TTL is the maximum token lifetime plus the leeway window.
	ttl := mr.TTL("ag:ia:user-1")
	if ttl <= time.Hour || ttl > time.Hour+30*time.Second {
		t.Errorf("marker TTL = %v, want (1h, 1h30s]", ttl)
	}
}

func TestInvalidateAllSessionsMonotonic(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	later := time.Now()
	earlier := later.Add(-time.Minute)

	if err := store.InvalidateAllSessions(ctx, "user-1", later); err != nil {
		t.Fatalf("InvalidateAllSessions failed: %v", err)
	}
	// An out-of-order earlier write must not regress the marker.
	if err := store.InvalidateAllSessions(ctx, "user-1", earlier); err != nil {
		t.Fatalf("InvalidateAllSessions failed: %v", err)
	}

	marker, ok, err := store.InvalidatedAfter(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("InvalidatedAfter = ok=%v err=%v, want present", ok, err)
	}
	if marker.Unix() != later.Unix() {
		t.Errorf("marker regressed to %v, want %v", marker.Unix(), later.Unix())
	}

	// A later write still advances it.
	next := later.Add(time.Minute)
	if err := store.InvalidateAllSessions(ctx, "user-1", next); err != nil {
		t.Fatalf("InvalidateAllSessions failed: %v", err)
	}
	marker, _, err = store.InvalidatedAfter(ctx, "user-1")
	if err != nil {
		t.Fatalf("InvalidatedAfter failed: %v", err)
	}
	if marker.Unix() != next.Unix() {
		t.Errorf("marker = %v, want %v", marker.Unix(), next.Unix())
	}
}

func TestStoreErrorsWrapRedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewStore(rdb, "ag", time.Hour, 0)

	mr.Close()
	ctx := context.Background()

	if _, err := store.IsRevoked(ctx, "sid-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("IsRevoked = %v, want ErrRedisUnavailable", err)
	}
	if err := store.RevokeSession(ctx, "sid-1", time.Now().Add(time.Hour)); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("RevokeSession = %v, want ErrRedisUnavailable", err)
	}
	if err := store.InvalidateAllSessions(ctx, "user-1", time.Now()); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("InvalidateAllSessions = %v, want ErrRedisUnavailable", err)
	}
	if _, _, err := store.InvalidatedAfter(ctx, "user-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("InvalidatedAfter = %v, want ErrRedisUnavailable", err)
	}
}
