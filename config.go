package gatekeeper

import (
	"errors"
	"time"

	"github.com/playgate/gatekeeper/jwt"
	"github.com/playgate/gatekeeper/session"
)

// Config holds engine settings. Build a Config from [DefaultConfig] and
// override fields; Builder.Build calls Validate.
type Config struct {
	Environment Environment
	JWT         JWTConfig
	Session     SessionConfig
	Password    PasswordConfig
	Security    SecurityConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls session token signing.
type JWTConfig struct {
	// Lifetime is both the token exp and the Redis TTL of the stored session.
	Lifetime      time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session storage.
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for new hashes.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// UpgradeOnLogin rehashes bcrypt or weaker Argon2id hashes after a
	// successful password login and persists the result with the account.
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls the failed-login throttle.
type SecurityConfig struct {
	// MaxLoginAttempts of zero disables throttling.
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	EnableIPThrottle bool
	RatePrefix       string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls async audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns development defaults. A signing secret must still be
// supplied.
func DefaultConfig() Config {
	return Config{
		Environment: EnvDevelopment,
		JWT: JWTConfig{
			Lifetime:      jwt.DefaultLifetime,
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "gatekeeper",
		},
		Session: SessionConfig{
			RedisPrefix: session.DefaultPrefix,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			MaxLoginAttempts: 0,
			LoginCooldown:    15 * time.Minute,
			EnableIPThrottle: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		return errors.New("Environment must be production, development or test")
	}

	// JWT
	if c.JWT.Lifetime <= 0 {
		return errors.New("JWT Lifetime must be > 0")
	}
	switch c.JWT.SigningMethod {
	case string(jwt.MethodHS256):
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a signing secret of at least 32 bytes")
		}
	case string(jwt.MethodEd25519):
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldown <= 0 {
		return errors.New("Security LoginCooldown must be > 0 when throttling is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
