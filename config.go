package authgate

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config defines every tunable of the session-control core. It is read once
// at startup, validated by [Builder.Build], and treated as immutable after.
type Config struct {
	Token     TokenConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Store     StoreConfig
	Audit     AuditConfig

	// KeyPrefix namespaces every Redis key written by this module.
	KeyPrefix string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls issuance and verification of session tokens.
type TokenConfig struct {
	// Secret is the symmetric HMAC signing secret. Absence is a fatal
	// build-time condition; there is no default.
	Secret []byte

	// AccessTTL is the token lifetime and also the TTL of the
	// logout-everywhere marker, after which no token issued before the
	// marker can still be live.
	AccessTTL time.Duration

	// SigningMethod selects the HMAC variant: "hs256" (default), "hs384",
	// or "hs512".
	SigningMethod string

	Issuer string
	Leeway time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateProfile is one (window, budget) pair. The window boundary is fixed at
// the first request, not sliding.
type RateProfile struct {
	Window      time.Duration
	MaxRequests int
}

// RateLimitConfig holds the governor's global switch and the named
// environment profiles routes may select from.
type RateLimitConfig struct {
	Enabled  bool
	Profiles map[string]RateProfile
}

// Built-in profile names. ProfileDefault is the normal production budget;
// ProfileRelaxed is the loose budget used by test environments and
// trusted internal callers.
const (
	ProfileDefault = "default"
	ProfileRelaxed = "relaxed"
)

/*
====================================
STORE CONFIG
====================================
*/

// RedisConfig carries connection parameters for the shared store. The Engine
// never dials Redis itself; these values exist so ConfigFromEnv can hand a
// complete picture to the process entrypoint that does.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreConfig bounds every per-request Redis call.
type StoreConfig struct {
	// Timeout caps a single store round-trip. A timed-out revocation check
	// fails closed; a timed-out rate check fails open.
	Timeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns production defaults. The signing secret is
// intentionally absent and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Profiles: map[string]RateProfile{
				ProfileDefault: {Window: time.Minute, MaxRequests: 120},
				ProfileRelaxed: {Window: time.Minute, MaxRequests: 1000},
			},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Store: StoreConfig{
			Timeout: 250 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		KeyPrefix: "ag",
	}
}

// TestConfig returns DefaultConfig with short token lifetimes and effectively
// unlimited rate budgets, suitable for test suites.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessTTL = time.Minute
	cfg.Token.Leeway = 0
	cfg.RateLimit.Profiles = map[string]RateProfile{
		ProfileDefault: {Window: time.Second, MaxRequests: 10000},
		ProfileRelaxed: {Window: time.Second, MaxRequests: 10000},
	}
	cfg.Audit.Enabled = false
	return cfg
}

// ConfigFromEnv builds a Config from environment variables, loading a .env
// file first if one is present. A missing AUTHGATE_SECRET is a
// KindConfiguration error: token components must not start without it.
//
// Recognized variables:
//
//	AUTHGATE_SECRET                  signing secret (required)
//	AUTHGATE_ACCESS_TTL_SECONDS      token lifetime (default 900)
//	AUTHGATE_SIGNING_METHOD          hs256 | hs384 | hs512
//	AUTHGATE_RATE_LIMIT_ENABLED      true/false (default true)
//	AUTHGATE_RATE_WINDOW_MS          default profile window
//	AUTHGATE_RATE_MAX_REQUESTS       default profile budget
//	AUTHGATE_RATE_RELAXED_WINDOW_MS  relaxed profile window
//	AUTHGATE_RATE_RELAXED_MAX        relaxed profile budget
//	AUTHGATE_STORE_TIMEOUT_MS        per-call Redis timeout
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	secret := os.Getenv("AUTHGATE_SECRET")
	if strings.TrimSpace(secret) == "" {
		return Config{}, NewError(KindConfiguration, "AUTHGATE_SECRET is not set")
	}
	cfg.Token.Secret = []byte(secret)

	cfg.Token.AccessTTL = time.Duration(getEnvAsInt("AUTHGATE_ACCESS_TTL_SECONDS", 900)) * time.Second
	if method := os.Getenv("AUTHGATE_SIGNING_METHOD"); method != "" {
		cfg.Token.SigningMethod = method
	}

	cfg.RateLimit.Enabled = getEnvAsBool("AUTHGATE_RATE_LIMIT_ENABLED", true)
	def := cfg.RateLimit.Profiles[ProfileDefault]
	def.Window = time.Duration(getEnvAsInt("AUTHGATE_RATE_WINDOW_MS", int(def.Window/time.Millisecond))) * time.Millisecond
	def.MaxRequests = getEnvAsInt("AUTHGATE_RATE_MAX_REQUESTS", def.MaxRequests)
	cfg.RateLimit.Profiles[ProfileDefault] = def

	relaxed := cfg.RateLimit.Profiles[ProfileRelaxed]
	relaxed.Window = time.Duration(getEnvAsInt("AUTHGATE_RATE_RELAXED_WINDOW_MS", int(relaxed.Window/time.Millisecond))) * time.Millisecond
	relaxed.MaxRequests = getEnvAsInt("AUTHGATE_RATE_RELAXED_MAX", relaxed.MaxRequests)
	cfg.RateLimit.Profiles[ProfileRelaxed] = relaxed

	cfg.Store.Timeout = time.Duration(getEnvAsInt("AUTHGATE_STORE_TIMEOUT_MS", 250)) * time.Millisecond

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Token.Secret) == 0 {
		return NewError(KindConfiguration, "signing secret is required")
	}
	if c.Token.AccessTTL <= 0 {
		return NewError(KindConfiguration, "token access TTL must be positive")
	}
	if c.Store.Timeout <= 0 {
		return NewError(KindConfiguration, "store timeout must be positive")
	}
	if c.RateLimit.Enabled {
		if len(c.RateLimit.Profiles) == 0 {
			return NewError(KindConfiguration, "rate limiting enabled with no profiles")
		}
		for name, p := range c.RateLimit.Profiles {
			if p.Window <= 0 || p.MaxRequests <= 0 {
				return errorf(KindConfiguration, "rate profile %q has non-positive window or budget", name)
			}
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Token.Secret != nil {
		out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	}
	if cfg.RateLimit.Profiles != nil {
		out.RateLimit.Profiles = make(map[string]RateProfile, len(cfg.RateLimit.Profiles))
		for name, p := range cfg.RateLimit.Profiles {
			out.RateLimit.Profiles[name] = p
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
