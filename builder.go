package gatekeeper

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/playgate/gatekeeper/identity"
	"github.com/playgate/gatekeeper/internal/audit"
	"github.com/playgate/gatekeeper/internal/rate"
	"github.com/playgate/gatekeeper/jwt"
	"github.com/playgate/gatekeeper/password"
	"github.com/playgate/gatekeeper/session"
)

// dummyPassword seeds the hash verified when an email has no account.
const dummyPassword = "gatekeeper-dummy-password"

// Builder assembles an Engine. Configure it during initialization; Build may
// be called once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts AccountProvider
	links    IdentityLinkProvider

	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for sessions and the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithIdentityLinks sets the link source. Required in production.
func (b *Builder) WithIdentityLinks(p IdentityLinkProvider) *Builder {
	b.links = p
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token issuance, the age gate and last
// login timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires every collaborator.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- IDENTITY POLICY --------
	policy := identity.PolicyFor(string(cfg.Environment))
	verifier, err := identity.NewVerifier(policy, b.links, now)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		Lifetime:      cfg.JWT.Lifetime,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	dummy, err := ph.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		now:          now,
		logger:       b.logger.With().Str("component", "gatekeeper").Logger(),
		accounts:     b.accounts,
		verifier:     verifier,
		jwtManager:   jm,
		passwordHash: ph,
		dummyHash:    dummy,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		rateLimiter: rate.New(b.redis, rate.Config{
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LoginCooldown:    cfg.Security.LoginCooldown,
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			Prefix:           cfg.Security.RatePrefix,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		tracer:  newTracer(),
	}

	engine.logger.Info().
		Str("environment", string(cfg.Environment)).
		Bool("identity_verification", policy.RequiresIdentityVerification).
		Dur("session_lifetime", cfg.JWT.Lifetime).
		Msg("engine ready")

	b.built = true
	return engine, nil
}
