package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Tracking token format: trk_{prefix}_{secret}
// Example: trk_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a
const (
	TrackingPrefixLen = 6
	TrackingSecretLen = 24
)

var (
	// ErrInvalidTrackingToken indicates a malformed tracking token.
	ErrInvalidTrackingToken = errors.New("invalid tracking token format")

	trackingTokenRegex = regexp.MustCompile(`^trk_([a-f0-9]{6})_([a-f0-9]{24})$`)
)

// GeneratedToken is a freshly minted tracking token.
type GeneratedToken struct {
	Plaintext string // embedded in lure links, shown once
	Hash      string // stored and used for lookup
	Prefix    string
}

// GenerateTrackingToken creates a random per-target tracking token.
func GenerateTrackingToken() (*GeneratedToken, error) {
	prefix, err := randomHex(TrackingPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(TrackingSecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := "trk_" + prefix + "_" + secret
	return &GeneratedToken{
		Plaintext: plaintext,
		Hash:      QuickHash(plaintext),
		Prefix:    prefix,
	}, nil
}

// TrackingTokenHash validates token and returns its lookup hash.
func TrackingTokenHash(token string) (string, error) {
	if !trackingTokenRegex.MatchString(token) {
		return "", ErrInvalidTrackingToken
	}
	return QuickHash(token), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
