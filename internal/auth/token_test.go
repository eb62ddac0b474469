package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/model"
)

var testTokenConfig = TokenConfig{
	SecretKey: "test-secret-key-with-enough-entropy",
	Issuer:    "phishdrill",
	Audience:  "phishdrill-web",
	TTL:       30 * time.Minute,
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func decodePayload(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}

func TestNewTokenIssuer_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	cfg := testTokenConfig
	cfg.SecretKey = "   "
	_, err := NewTokenIssuer(cfg)
	assert.ErrorIs(t, err, ErrMissingSigningKey)

	cfg = testTokenConfig
	cfg.TTL = 0
	_, err = NewTokenIssuer(cfg)
	assert.ErrorIs(t, err, ErrInvalidTokenTTL)
}

func TestIssue_Claims(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer(testTokenConfig, WithClock(fixedClock(now)))
	require.NoError(t, err)

	account := &model.Account{ID: "acc-1", Email: "jane@x.com"}
	tok, err := issuer.Issue(account,
		[]string{model.RoleUser, model.RoleMember, model.RoleUser},
		[]string{model.PermUserRead, model.PermCampaignRead, model.PermUserRead},
	)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), tok.ExpiresAt)

	payload := decodePayload(t, tok.AccessToken)
	assert.Equal(t, "acc-1", payload["sub"])
	assert.Equal(t, "jane@x.com", payload["email"])
	assert.Equal(t, "phishdrill", payload["iss"])
	assert.Equal(t, []any{"phishdrill-web"}, payload["aud"])
	assert.Equal(t, []any{"Member", "User"}, payload["role"])
	assert.Equal(t, []any{"campaign:read", "user:read"}, payload["permission"])
	assert.EqualValues(t, now.Add(30*time.Minute).Unix(), payload["exp"])
}

func TestIssue_RejectsAccountWithoutID(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer(testTokenConfig)
	require.NoError(t, err)

	_, err = issuer.Issue(&model.Account{Email: "x@y.z"}, nil, nil)
	assert.Error(t, err)
	_, err = issuer.Issue(nil, nil, nil)
	assert.Error(t, err)
}

func TestParse_RoundTripToPrincipal(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer(testTokenConfig)
	require.NoError(t, err)

	tok, err := issuer.Issue(&model.Account{ID: "acc-1", Email: "jane@x.com"},
		[]string{model.RoleAdmin}, []string{model.PermUserDelete})
	require.NoError(t, err)

	claims, err := issuer.Parse(tok.AccessToken)
	require.NoError(t, err)

	p := claims.Principal()
	assert.Equal(t, "acc-1", p.Subject())
	assert.True(t, p.HasRole(model.RoleAdmin))
	assert.Equal(t, authz.Allow, authz.Authorize(p, authz.AnyPermission(model.PermUserDelete)))
	assert.Equal(t, []string{"phishdrill-web"}, p.Claims()["aud"])
}

func TestParse_Rejections(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer, err := NewTokenIssuer(testTokenConfig, WithClock(fixedClock(now)))
	require.NoError(t, err)
	account := &model.Account{ID: "acc-1", Email: "jane@x.com"}

	valid, err := issuer.Issue(account, nil, nil)
	require.NoError(t, err)

	later, err := NewTokenIssuer(testTokenConfig, WithClock(fixedClock(now.Add(time.Hour))))
	require.NoError(t, err)

	otherKey := testTokenConfig
	otherKey.SecretKey = "a-different-secret"
	forger, err := NewTokenIssuer(otherKey)
	require.NoError(t, err)
	forged, err := forger.Issue(account, []string{model.RoleAdmin}, nil)
	require.NoError(t, err)

	otherAud := testTokenConfig
	otherAud.Audience = "someone-else"
	foreign, err := NewTokenIssuer(otherAud)
	require.NoError(t, err)
	foreignTok, err := foreign.Issue(account, nil, nil)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"expired", later, valid.AccessToken},
		{"wrong key", issuer, forged.AccessToken},
		{"wrong audience", issuer, foreignTok.AccessToken},
		{"alg none", issuer, none},
		{"garbage", issuer, "not.a.token"},
		{"empty", issuer, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.issuer.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
