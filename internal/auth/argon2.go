// Package auth issues and verifies credentials: password hashes, access
// tokens and tracking tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/phishdrill/phishdrill/internal/model"
)

// Argon2Params tunes the argon2id key derivation.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params follows the OWASP minimum for argon2id.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// maxArgon2Memory caps parameters read back from stored hashes.
const maxArgon2Memory = 1024 * 1024

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Argon2Hasher hashes account passwords into PHC strings.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher returns a hasher using params. Zero fields fall back to defaults.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	d := DefaultArgon2Params
	if params.Time == 0 {
		params.Time = d.Time
	}
	if params.Memory == 0 {
		params.Memory = d.Memory
	}
	if params.Threads == 0 {
		params.Threads = d.Threads
	}
	if params.KeyLen == 0 {
		params.KeyLen = d.KeyLen
	}
	if params.SaltLen == 0 {
		params.SaltLen = d.SaltLen
	}
	return &Argon2Hasher{params: params}
}

// Hash derives the stored hash for an account's password.
func (h *Argon2Hasher) Hash(_ *model.Account, plaintext string) (string, error) {
	return hashWith(h.params, plaintext)
}

// Verify checks plaintext against the account's stored hash.
func (h *Argon2Hasher) Verify(account *model.Account, plaintext string) (bool, error) {
	if account == nil {
		return false, ErrInvalidHash
	}
	return VerifyPassword(plaintext, account.PasswordHash)
}

// HashPassword creates an argon2id hash with the default parameters.
func HashPassword(password string) (string, error) {
	return hashWith(DefaultArgon2Params, password)
}

func hashWith(p Argon2Params, password string) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks password against a PHC-encoded argon2id hash in constant time.
func VerifyPassword(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, ErrIncompatibleVersion
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrInvalidHash
	}
	if memory == 0 || memory > maxArgon2Memory || iterations == 0 || threads == 0 {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, ErrInvalidHash
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// QuickHash returns a truncated SHA256 of input for lookup keys.
// Not suitable for passwords.
func QuickHash(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}
