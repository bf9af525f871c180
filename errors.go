package authgate

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is the closed enumeration of authentication and rate-limit failure
// classes. Callers discriminate on Kind (via [KindOf] or errors.Is against
// the exported sentinels), never on error message text.
type Kind uint8

const (
	// KindUnauthenticated: no credential, blank credential, or a malformed
	// Authorization scheme. Distinct from a present-but-forged token.
	KindUnauthenticated Kind = iota
	// KindMalformedToken: the token failed structural or signature checks.
	KindMalformedToken
	// KindExpiredToken: the token's exp has passed.
	KindExpiredToken
	// KindRevokedToken: the session was revoked, either individually or by a
	// logout-everywhere marker.
	KindRevokedToken
	// KindInsufficientRole: authenticated, but the claims' role does not
	// satisfy the route requirement.
	KindInsufficientRole
	// KindConfiguration: a missing or invalid setting (typically the signing
	// secret). Always fatal at build time, never silently defaulted.
	KindConfiguration
	// KindRateLimited: the request budget for the window is exhausted.
	KindRateLimited
	// KindStoreUnavailable: Redis could not be consulted on the fail-closed
	// path. Surfaced as a server error, never as "not revoked".
	KindStoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindMalformedToken:
		return "malformed token"
	case KindExpiredToken:
		return "token expired"
	case KindRevokedToken:
		return "token revoked"
	case KindInsufficientRole:
		return "insufficient role"
	case KindConfiguration:
		return "configuration error"
	case KindRateLimited:
		return "rate limited"
	case KindStoreUnavailable:
		return "store unavailable"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a failure class to its client-facing status code.
// KindStoreUnavailable is the only 500-class kind; it occurs solely on the
// fail-closed revocation path.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated, KindMalformedToken, KindExpiredToken, KindRevokedToken:
		return http.StatusUnauthorized
	case KindInsufficientRole:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindStoreUnavailable, KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured failure type returned by Engine operations.
type Error struct {
	Kind Kind

	// Detail is operator-facing context. It is logged and audited but never
	// sent to clients; clients see only the Kind's uniform message.
	Detail string

	// RetryAfter is set for KindRateLimited failures.
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same Kind, so
// errors.Is(err, ErrRevokedToken) works regardless of detail or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel values for errors.Is checks. These carry no detail; Engine
// operations return richer *Error values that compare equal by Kind.
var (
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated}
	ErrMalformedToken   = &Error{Kind: KindMalformedToken}
	ErrExpiredToken     = &Error{Kind: KindExpiredToken}
	ErrRevokedToken     = &Error{Kind: KindRevokedToken}
	ErrInsufficientRole = &Error{Kind: KindInsufficientRole}
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
)

// NewError builds a failure of the given kind with operator detail.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func wrapError(kind Kind, detail string, cause error) *Error {
	if cause != nil && detail == "" {
		detail = cause.Error()
	}
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure class from an error returned by this package.
// ok is false for nil and for foreign errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
