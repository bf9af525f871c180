package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the HMAC variant used to sign tokens. All variants
// carry a 256-bit-or-stronger digest; the algorithm identifier is recorded in
// the JOSE header so future upgrades are detectable on verify.
type SigningMethod string

const (
	MethodHS256 SigningMethod = "hs256"
	MethodHS384 SigningMethod = "hs384"
	MethodHS512 SigningMethod = "hs512"
)

// Sentinel parse failures. Callers map these onto their own error taxonomy;
// anything that is not ErrExpired is a structural or signature failure.
var (
	// ErrMissingSecret is returned by NewManager when no signing secret is
	// configured. This is checked at construction, never deferred to the
	// first Issue call.
	ErrMissingSecret = errors.New("signing secret is required")

	// ErrExpired reports a structurally valid, correctly signed token whose
	// exp has passed.
	ErrExpired = errors.New("token expired")

	// ErrMalformed reports a token that failed structural or signature
	// checks.
	ErrMalformed = errors.New("malformed or forged token")
)

// Config holds the signing parameters for a [Manager].
type Config struct {
	Secret        []byte
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	Issuer        string
	Leeway        time.Duration
}

// Claims is the signed payload: subject identity plus a session id unique per
// issuance. sid is the revocation key; it is never reused, even for the same
// subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	SID   string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session tokens with a fixed symmetric secret.
// A Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
}

// NewManager validates cfg and builds a [Manager]. A missing secret or
// non-positive TTL is rejected here so a misconfigured process fails at
// startup, before any token is processed.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	var method jwt.SigningMethod
	switch cfg.SigningMethod {
	case MethodHS256, "":
		method = jwt.SigningMethodHS256
	case MethodHS384:
		method = jwt.SigningMethodHS384
	case MethodHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg, method: method}, nil
}

// AccessTTL reports the configured token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// Issue mints a signed token for the subject. The session id is a fresh
// UUIDv4 (122 bits of entropy from crypto/rand), iat is now, and exp is
// now + AccessTTL. Issue has no store side effects.
func (m *Manager) Issue(subject, email, role string) (string, *Claims, error) {
	if strings.TrimSpace(subject) == "" {
		return "", nil, errors.New("subject is required")
	}

	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		SID:   uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			Issuer:    m.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// Parse verifies signature, structure, and time validity, in that order, and
// returns the claims. Expiry is reported as [ErrExpired]; every other failure
// collapses to [ErrMalformed] so callers cannot leak parser internals to
// clients.
func (m *Manager) Parse(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

// DecodeUnverified parses claims WITHOUT checking signature, expiry, or
// revocation. Diagnostic use only; it must never feed an authorization
// decision. Returns nil on unparsable input, never an error.
func (m *Manager) DecodeUnverified(raw string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}
