package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/hexveil/authgate/internal/rate"
	"github.com/hexveil/authgate/revocation"
	"github.com/hexveil/authgate/token"
)

// Engine composes the token issuer/verifier, the revocation store, and the
// rate governor behind one concurrency-safe facade. Engines are built through
// [Builder.Build] and immutable afterward.
type Engine struct {
	config      Config
	tokens      *token.Manager
	revocations *revocation.Store
	governor    *rate.Governor
	credentials CredentialVerifier
	audit       *auditDispatcher
	metrics     *Metrics
}

// storeCtx bounds one Redis round-trip. Store calls are a request-path
// dependency; they get low-hundreds-of-milliseconds, not the request's whole
// deadline.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Store.Timeout)
}

// Login verifies credentials through the injected [CredentialVerifier] and
// mints a session token for the resulting identity. Credential failures are
// uniformly KindUnauthenticated; the caller learns nothing about whether the
// identifier exists.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil || e.credentials == nil {
		return nil, NewError(KindConfiguration, "no credential verifier configured")
	}

	ident, err := e.credentials.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailed,
			IP:        clientIPFromContext(ctx),
			Error:     err.Error(),
		})
		return nil, wrapError(KindUnauthenticated, "invalid credentials", err)
	}

	signed, claims, err := e.tokens.Issue(ident.Subject, ident.Email, ident.Role)
	if err != nil {
		return nil, wrapError(KindConfiguration, "token issuance failed", err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricTokenIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogin,
		Subject:   ident.Subject,
		SessionID: claims.SID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})

	return &LoginResult{
		Token:     signed,
		Subject:   ident.Subject,
		Email:     ident.Email,
		Role:      ident.Role,
		SessionID: claims.SID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate runs the full verifier chain, short-circuiting on first failure:
//
//  1. signature/structure  -> KindMalformedToken
//  2. expiry               -> KindExpiredToken
//  3. sid blacklist        -> KindRevokedToken
//  4. invalidate-after     -> KindRevokedToken
//
// Steps 3 and 4 fail CLOSED: if Redis cannot be consulted, validity cannot be
// established and the result is KindStoreUnavailable, never a claims value.
func (e *Engine) Validate(ctx context.Context, raw string) (*token.Claims, error) {
	claims, err := e.tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			e.metrics.Inc(MetricValidateExpired)
			return nil, wrapError(KindExpiredToken, "", err)
		}
		e.metrics.Inc(MetricValidateMalformed)
		return nil, wrapError(KindMalformedToken, "", err)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	revoked, err := e.revocations.IsRevoked(sctx, claims.SID)
	if err != nil {
		return nil, e.storeError(ctx, claims, err)
	}
	if revoked {
		return nil, e.rejectRevoked(ctx, claims, "session revoked")
	}

	marker, ok, err := e.revocations.InvalidatedAfter(sctx, claims.Subject)
	if err != nil {
		return nil, e.storeError(ctx, claims, err)
	}
	if ok && claims.IssuedAt != nil && claims.IssuedAt.Time.Unix() < marker.Unix() {
		return nil, e.rejectRevoked(ctx, claims, "all sessions invalidated")
	}

	e.metrics.Inc(MetricValidateSuccess)
	return claims, nil
}

func (e *Engine) rejectRevoked(ctx context.Context, claims *token.Claims, detail string) error {
	e.metrics.Inc(MetricValidateRevoked)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditValidateRejected,
		Subject:   claims.Subject,
		SessionID: claims.SID,
		IP:        clientIPFromContext(ctx),
		Error:     detail,
	})
	return NewError(KindRevokedToken, detail)
}

func (e *Engine) storeError(ctx context.Context, claims *token.Claims, err error) error {
	e.metrics.Inc(MetricValidateStoreError)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditStoreUnavailable,
		Subject:   claims.Subject,
		SessionID: claims.SID,
		Error:     err.Error(),
	})
	return wrapError(KindStoreUnavailable, "revocation check failed", err)
}

// DecodeUnverified parses claims without signature, expiry, or revocation
// checks. Diagnostic use only; never call it on the authorization path.
// Returns nil on unparsable input.
func (e *Engine) DecodeUnverified(raw string) *token.Claims {
	return e.tokens.DecodeUnverified(raw)
}

// Logout revokes the presented token's session. The token is decoded locally
// (no store round-trip); the blacklist record lives until the verifier stops
// accepting the token, remaining lifetime plus leeway. Logging out a token
// past its acceptance window succeeds as a no-op.
func (e *Engine) Logout(ctx context.Context, raw string) error {
	claims, err := e.tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil
		}
		return wrapError(KindMalformedToken, "", err)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.revocations.RevokeSession(sctx, claims.SID, claims.ExpiresAt.Time); err != nil {
		return wrapError(KindStoreUnavailable, "revocation write failed", err)
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		Subject:   claims.Subject,
		SessionID: claims.SID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

// LogoutAll invalidates every session of the subject by moving its
// invalidate-after marker to now. Tokens issued strictly before the marker
// are rejected by Validate; tokens issued afterward are unaffected.
func (e *Engine) LogoutAll(ctx context.Context, subject string) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.revocations.InvalidateAllSessions(sctx, subject, time.Now()); err != nil {
		return wrapError(KindStoreUnavailable, "invalidate-all write failed", err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogoutAll,
		Subject:   subject,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

// RateLimit counts one request against the named profile's window for the
// given key. When the governor is disabled the request is allowed with a
// zero Limit. An unknown profile is a configuration error; a Redis outage is
// not an error at all — the governor fails open.
func (e *Engine) RateLimit(ctx context.Context, key, profile string) (RateResult, error) {
	if !e.config.RateLimit.Enabled {
		return RateResult{Allowed: true}, nil
	}

	p, ok := e.config.RateLimit.Profiles[profile]
	if !ok {
		return RateResult{}, errorf(KindConfiguration, "unknown rate profile %q", profile)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	res := e.governor.Check(sctx, profile+":"+key, p.MaxRequests, p.Window)
	if res.Allowed {
		e.metrics.Inc(MetricRateAllowed)
	} else {
		e.metrics.Inc(MetricRateLimited)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditRateLimited,
			IP:        clientIPFromContext(ctx),
			Metadata:  map[string]string{"profile": profile, "key": key},
		})
	}

	return RateResult{
		Allowed:    res.Allowed,
		Limit:      res.Limit,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
	}, nil
}

// Close flushes the audit dispatcher. The injected Redis client is owned by
// the caller and is not closed here.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports events discarded by the dispatcher under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = time.Now()
	e.audit.Emit(ctx, event)
}
