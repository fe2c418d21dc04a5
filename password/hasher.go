package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8
	maxPassBytes          = 1024
	algorithmID           = "argon2id"
)

// ErrUnsupportedHash is returned when a stored hash is neither Argon2id PHC nor bcrypt.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Config holds Argon2id cost parameters for newly produced hashes.
type Config struct {
	Memory      uint32 // KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the production Argon2id parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces Argon2id hashes and verifies Argon2id or bcrypt hashes.
// It holds no mutable state and is safe for concurrent use.
type Hasher struct {
	config Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// Hash returns the PHC-encoded Argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	// Raw bytes exactly as provided; no Unicode normalization.
	if len(password) < minPassBytes {
		return "", fmt.Errorf("password must be at least %d bytes", minPassBytes)
	}
	if len(password) > maxPassBytes {
		return "", fmt.Errorf("password must be at most %d bytes", maxPassBytes)
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. A malformed or
// unsupported hash is an error; a well-formed hash that does not match is (false, nil).
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if len(password) > maxPassBytes {
		return false, nil
	}

	if isBcrypt(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.hash)))
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// Hash: always for bcrypt, and for Argon2id hashes weaker than the current config.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return true, nil
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return h.config.Memory > parsed.memory ||
		h.config.Time > parsed.time ||
		h.config.Parallelism > parsed.parallelism ||
		h.config.KeyLength != uint32(len(parsed.hash)), nil
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

func parsePHC(encodedHash string) (*phc, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrUnsupportedHash
	}
	if parts[1] != algorithmID {
		return nil, ErrUnsupportedHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &phc{}
	if err := parseParams(parts[3], out); err != nil {
		return nil, err
	}

	// Accept both padded and unpadded base64; older tooling padded.
	out.salt, err = decodeB64(parts[4])
	if err != nil || len(out.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	out.hash, err = decodeB64(parts[5])
	if err != nil || len(out.hash) == 0 {
		return nil, errors.New("invalid hash")
	}

	return out, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func parseParams(part string, out *phc) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return errors.New("invalid parameter format")
	}

	var memorySet, timeSet, parallelismSet bool
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			out.memory = uint32(n)
			memorySet = true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			out.time = uint32(n)
			timeSet = true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			out.parallelism = uint8(n)
			parallelismSet = true
		default:
			return errors.New("unsupported parameter")
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return errors.New("missing parameters")
	}
	return nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return errors.New("password memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return errors.New("password key length must be >= 16")
	}
	return nil
}
