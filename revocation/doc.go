// Package revocation stores the two record types that make a signed session
// token refusable before its natural expiry:
//
//   - a per-session blacklist record, keyed by sid, whose TTL equals the
//     token's remaining lifetime so it expires exactly when the token would
//     have, bounding storage without a garbage collector;
//   - a per-subject invalidate-after marker holding a unix timestamp; any
//     token with iat earlier than the marker is treated as revoked, which
//     implements logout-everywhere without enumerating sessions.
//
// All state lives in Redis. Marker writes go through a Lua compare-and-set so
// the timestamp is monotonically non-decreasing under concurrent writers.
//
// Reads on the verification path require read-after-write consistency with
// revocation writes: point both at the same Redis endpoint. Replication lag
// on this data is a security bug, not a tuning knob.
package revocation
