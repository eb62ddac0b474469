package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/model"
)

var (
	// ErrMissingSigningKey is returned when no JWT secret is configured.
	ErrMissingSigningKey = errors.New("jwt signing key is not configured")
	// ErrInvalidTokenTTL is returned for a non-positive token lifetime.
	ErrInvalidTokenTTL = errors.New("jwt expiration must be positive")
	// ErrInvalidToken covers every reason a presented token is rejected.
	ErrInvalidToken = errors.New("invalid access token")
)

// TokenConfig holds JWT settings.
type TokenConfig struct {
	SecretKey string
	Issuer    string
	Audience  string
	TTL       time.Duration
}

// Claims is the JWT payload. Roles and permissions are emitted as one array
// per claim type.
type Claims struct {
	Email       string   `json:"email"`
	Roles       []string `json:"role,omitempty"`
	Permissions []string `json:"permission,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into an authorization principal.
func (c *Claims) Principal() *authz.Principal {
	extra := map[string][]string{}
	if c.Issuer != "" {
		extra["iss"] = []string{c.Issuer}
	}
	if len(c.Audience) > 0 {
		extra["aud"] = append([]string(nil), c.Audience...)
	}
	if c.ExpiresAt != nil {
		extra["exp"] = []string{strconv.FormatInt(c.ExpiresAt.Unix(), 10)}
	}
	if c.IssuedAt != nil {
		extra["iat"] = []string{strconv.FormatInt(c.IssuedAt.Unix(), 10)}
	}

	return authz.NewPrincipal(authz.Identity{
		Subject:     c.Subject,
		Email:       c.Email,
		Roles:       c.Roles,
		Permissions: c.Permissions,
		Extra:       extra,
	})
}

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// TokenOption customizes a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the issuer's time source.
func WithClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer validates cfg and builds an issuer. It refuses to run
// without a signing key.
func NewTokenIssuer(cfg TokenConfig, opts ...TokenOption) (*TokenIssuer, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrMissingSigningKey
	}
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTokenTTL
	}

	i := &TokenIssuer{
		key:      []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a token for account carrying roles and permissions. Both lists
// are deduplicated and sorted so equal inputs produce equal claim sets.
func (i *TokenIssuer) Issue(account *model.Account, roles, permissions []string) (*Token, error) {
	if account == nil || account.ID == "" {
		return nil, errors.New("issue token: account id is required")
	}

	now := i.now().UTC()
	expires := now.Add(i.ttl)

	claims := Claims{
		Email:       account.Email,
		Roles:       authz.MergePermissions(roles),
		Permissions: authz.MergePermissions(permissions),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{AccessToken: signed, ExpiresAt: expires}, nil
}

// Parse verifies signature, algorithm, issuer, audience and expiry.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
