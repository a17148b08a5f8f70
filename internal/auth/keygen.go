package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// API keys look like hl_<env>_<prefix>_<secret>, e.g.
// hl_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b. The prefix is stored in
// clear for lookup; the whole key is stored only as an Argon2id hash.
const (
	keyScheme    = "hl"
	prefixBytes  = 3
	secretBytes  = 16
	KeyPrefixLen = 2 * prefixBytes
	KeySecretLen = 2 * secretBytes
)

const (
	EnvLive = "live"
	EnvTest = "test"
)

var ErrInvalidKeyFormat = errors.New("invalid API key format")

// GeneratedKey is a freshly minted key. Plaintext is returned to the caller
// once and never persisted.
type GeneratedKey struct {
	Plaintext string
	Hash      string
	Prefix    string
}

// ParsedKey holds the fields of a well-formed key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// GenerateAPIKey mints a key for env. Unknown environments fall back to live.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(prefixBytes)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := strings.Join([]string{keyScheme, env, prefix, secret}, "_")
	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}
	return &GeneratedKey{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

// ParseAPIKey splits a plaintext key into its fields.
func ParseAPIKey(key string) (*ParsedKey, error) {
	fields := strings.Split(key, "_")
	if len(fields) != 4 || fields[0] != keyScheme {
		return nil, ErrInvalidKeyFormat
	}
	env, prefix, secret := fields[1], fields[2], fields[3]
	if env != EnvLive && env != EnvTest {
		return nil, ErrInvalidKeyFormat
	}
	if !isLowerHex(prefix, KeyPrefixLen) || !isLowerHex(secret, KeySecretLen) {
		return nil, ErrInvalidKeyFormat
	}
	return &ParsedKey{Env: env, Prefix: prefix, Secret: secret}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func isLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
