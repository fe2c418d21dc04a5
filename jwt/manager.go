package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired is returned by [Manager.Parse] when the token's exp claim has passed.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid is returned by [Manager.Parse] for any signature, format, or claim failure
	// other than expiry.
	ErrTokenInvalid = errors.New("invalid session token")
)

// DefaultLifetime is the session lifetime used when Config.Lifetime is zero.
const DefaultLifetime = 30 * 24 * time.Hour

// SigningMethod selects the JWS algorithm used for session tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config controls token signing and verification.
type Config struct {
	Lifetime      time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration

	// Now overrides the clock used for iat/exp and validation. Defaults to time.Now.
	Now func() time.Time
}

// Payload is the session data embedded in a token.
type Payload struct {
	Email      string
	ExternalID string
	AgeGate    bool
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// SessionClaims is the wire form of [Payload].
type SessionClaims struct {
	Email      string `json:"email"`
	ExternalID string `json:"eid,omitempty"`
	AgeGate    bool   `json:"age"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens. It is safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Lifetime < 0 {
		return nil, errors.New("invalid lifetime configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a signing secret")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("ed25519 requires a private key")
		}
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires a public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Lifetime reports the configured token lifetime.
func (m *Manager) Lifetime() time.Duration {
	return m.config.Lifetime
}

// Sign issues a token for p. IssuedAt and ExpiresAt in p are ignored and
// derived from the manager clock and lifetime. Every token carries a random
// jti, so two tokens for the same payload never compare equal.
func (m *Manager) Sign(p Payload) (string, error) {
	if p.Email == "" {
		return "", errors.New("payload email is required")
	}

	now := m.config.Now()
	claims := SessionClaims{
		Email:      p.Email,
		ExternalID: p.ExternalID,
		AgeGate:    p.AgeGate,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Lifetime)),
		},
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", err
	}

	return jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
}

// Parse verifies the token signature and expiry and returns the embedded payload.
func (m *Manager) Parse(tokenStr string) (Payload, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return Payload{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return Payload{}, ErrTokenInvalid
	}

	p := Payload{
		Email:      claims.Email,
		ExternalID: claims.ExternalID,
		AgeGate:    claims.AgeGate,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(m.config.PrivateKey)
	}
	return m.config.PrivateKey, nil
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(m.config.PublicKey)
	}
	return m.config.PrivateKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
