package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const dashboardOrigin = "https://app.phishdrill.io"

func dashboardCORS() CORSConfig {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{dashboardOrigin, "*.staging.phishdrill.io"}
	return cfg
}

func corsRequest(method, path, origin string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"dashboard login preflight", http.MethodOptions, "/login", dashboardOrigin, http.StatusNoContent, dashboardOrigin},
		{"dashboard campaign list", http.MethodGet, "/api/v1/campaigns", dashboardOrigin, http.StatusOK, dashboardOrigin},
		{"staging subdomain", http.MethodGet, "/me", "https://pr-42.staging.phishdrill.io", http.StatusOK, "https://pr-42.staging.phishdrill.io"},
		{"origin match ignores case", http.MethodGet, "/me", "HTTPS://APP.PHISHDRILL.IO", http.StatusOK, "HTTPS://APP.PHISHDRILL.IO"},
		{"lookalike domain", http.MethodGet, "/me", "https://evilstaging.phishdrill.io", http.StatusOK, ""},
		{"foreign preflight rejected", http.MethodOptions, "/register-user", "https://evil.example", http.StatusForbidden, ""},
		{"lure mail client opening pixel", http.MethodGet, "/t/trk_abcdef_0123/open", "", http.StatusOK, ""},
		{"foreign page posting a report", http.MethodPost, "/t/trk_abcdef_0123/report", "https://webmail.example", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			h := CORS(dashboardCORS())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, corsRequest(tt.method, tt.path, tt.origin))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.method != http.MethodOptions, reached, "preflights never reach the route")
		})
	}
}

func TestCORS_NoOriginsConfigured(t *testing.T) {
	h := CORS(DefaultCORSConfig())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, corsRequest(http.MethodOptions, "/login", dashboardOrigin))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightAllowsBearerAndExposesRateLimit(t *testing.T) {
	h := CORS(dashboardCORS())(okHandler())

	req := corsRequest(http.MethodOptions, "/api/v1/campaigns", dashboardOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"), "bearer tokens need no cookies")

	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"Retry-After", "X-RateLimit-Remaining", "X-Request-ID"} {
		assert.True(t, strings.Contains(exposed, h), "%s should be exposed to the dashboard", h)
	}
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}
