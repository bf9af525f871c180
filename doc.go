// Package authgate provides the session-control core of a multi-tenant REST
// backend: HMAC-signed session tokens, Redis-backed revocation (single-session
// logout and logout-everywhere), and a fixed-window request rate governor that
// shares the same Redis instance as its only cross-process state.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// error kinds, and value types (MetricsSnapshot, AuditEvent, RateResult).
// Token codec details live in [github.com/hexveil/authgate/token], revocation
// records in [github.com/hexveil/authgate/revocation], and the rate governor
// under internal/.
//
// # Failure policy
//
// Revocation checks fail CLOSED: if Redis cannot be consulted, Validate
// reports [KindStoreUnavailable] rather than silently authorizing. The rate
// governor fails OPEN: a Redis outage lets requests through unthrottled and
// logs a warning. Both policies are load-bearing; do not invert them.
//
// # What this package must NOT do
//
//   - Own user/guest/device persistence. Credential lookup is delegated to a
//     caller-supplied [CredentialVerifier].
//   - Create its own Redis connection. The client is injected once at startup
//     via [Builder.WithRedis] and closed by the caller on shutdown.
//   - Retry authentication failures. A revoked token retried is still revoked.
package authgate
