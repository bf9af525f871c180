// Package rate implements the fixed-window request governor on Redis
// counters: INCR, EXPIRE on the window's first hit, PTTL read-back for the
// reset hint.
//
// The INCR-then-EXPIRE pair is intentionally not atomic. Two concurrent
// first-requests can both observe count==1 and both set the expiry; the
// writes are idempotent and the only effect is a negligible skew of the
// window boundary. Wrapping the pair in a transaction or lock would cost more
// than the precision is worth — the governor exists for speed, not exactness.
//
// The governor fails OPEN: any Redis failure yields an allowed decision, a
// warning log, and a metric bump. No store error ever reaches the caller,
// so a rate-limit outage cannot take the service down.
package rate
