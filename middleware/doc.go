// Package middleware exposes the two HTTP adapters the surrounding framework
// composes per route: [Authenticate] (Bearer token verification, claims into
// the request context) and [RateLimit] (fixed-window governor with
// X-RateLimit-* response headers and a 429 + Retry-After rejection body).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// [authgate.Engine].
//
// A missing or non-Bearer Authorization header is rejected as
// unauthenticated before the Engine is consulted; only a present Bearer
// token can fail as malformed.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Retry rejected requests. A revoked token retried is still revoked.
package middleware
