package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/model"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

func newTestIssuer(t *testing.T, now func() time.Time) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SecretKey: testSecret,
		Issuer:    "phishdrill",
		Audience:  "phishdrill",
		TTL:       time.Hour,
	}, auth.WithClock(now))
	require.NoError(t, err)
	return issuer
}

func TestAuthenticate_ValidToken(t *testing.T) {
	issuer := newTestIssuer(t, time.Now)
	token, err := issuer.Issue(&model.Account{ID: "acc-1", Email: "jane@x.com"},
		[]string{model.RoleUser}, []string{model.PermCampaignRead})
	require.NoError(t, err)

	var gotSubject string
	var hasPerm bool
	h := Authenticate(AuthConfig{Logger: discardLogger(), Verifier: issuer})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFromContext(r.Context())
			gotSubject = p.Subject()
			hasPerm = p.HasPermission(model.PermCampaignRead)
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", gotSubject)
	assert.True(t, hasPerm)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	issuer := newTestIssuer(t, time.Now)

	past := newTestIssuer(t, func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expired, err := past.Issue(&model.Account{ID: "acc-1"}, nil, nil)
	require.NoError(t, err)

	other, err := auth.NewTokenIssuer(auth.TokenConfig{
		SecretKey: "a-completely-different-secret-key-000",
		Issuer:    "phishdrill",
		Audience:  "phishdrill",
		TTL:       time.Hour,
	})
	require.NoError(t, err)
	forged, err := other.Issue(&model.Account{ID: "acc-1"}, []string{model.RoleAdmin}, nil)
	require.NoError(t, err)

	headers := map[string]string{
		"missing":    "",
		"not bearer": "Basic dXNlcjpwYXNz",
		"garbage":    "Bearer not-a-jwt",
		"expired":    "Bearer " + expired.AccessToken,
		"forged":     "Bearer " + forged.AccessToken,
	}

	var bodies []string
	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			called := false
			h := Authenticate(AuthConfig{Logger: discardLogger(), Verifier: issuer})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			bodies = append(bodies, rec.Body.String())
		})
	}

	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, extractBearerToken(req), "header %q", header)
	}
}
