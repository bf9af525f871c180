package authgate

import (
	"github.com/hexveil/authgate/internal/rate"
	"github.com/hexveil/authgate/revocation"
	"github.com/hexveil/authgate/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the Engine's methods are called.
type Builder struct {
	config      Config
	redis       redis.UniversalClient
	credentials CredentialVerifier
	auditSink   AuditSink

	built bool
}

// New starts a [Builder] with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis injects the process-wide Redis client. The client is constructed
// once at startup, shared across all requests, and closed by the caller on
// shutdown; the Engine never dials or closes it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialVerifier injects the identity-store collaborator used by
// [Engine.Login].
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.credentials = v
	return b
}

// WithAuditSink injects the audit event consumer. Defaults to [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and wires the Engine. A missing signing
// secret or Redis client fails here, before any request is processed.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, NewError(KindConfiguration, "builder already used")
	}
	if b.redis == nil {
		return nil, NewError(KindConfiguration, "redis client is required")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret:        b.config.Token.Secret,
		AccessTTL:     b.config.Token.AccessTTL,
		SigningMethod: token.SigningMethod(b.config.Token.SigningMethod),
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
	})
	if err != nil {
		return nil, wrapError(KindConfiguration, "token manager", err)
	}

	metrics := newMetrics()
	engine := &Engine{
		config:      b.config,
		tokens:      tokens,
		revocations: revocation.NewStore(b.redis, b.config.KeyPrefix, b.config.Token.AccessTTL, b.config.Token.Leeway),
		governor: rate.New(b.redis, b.config.KeyPrefix, func() {
			metrics.Inc(MetricRateFailOpen)
		}),
		credentials: b.credentials,
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:     metrics,
	}

	b.built = true
	return engine, nil
}
