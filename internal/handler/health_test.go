package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pinger stands in for the Postgres pool or the Redis cache.
type pinger struct {
	err         error
	calls       int
	hadDeadline bool
}

func (p *pinger) Ping(ctx context.Context) error {
	p.calls++
	_, p.hadDeadline = ctx.Deadline()
	return p.err
}

func getHealth(t *testing.T, h http.HandlerFunc, path string) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, decode[HealthResponse](t, rec)
}

func TestHealthz_IgnoresDependencies(t *testing.T) {
	db := &pinger{err: errors.New("down")}
	h := NewHealthHandler(db, nil)

	code, resp := getHealth(t, h.Healthz, "/healthz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Checks)
	assert.Zero(t, db.calls, "liveness must not touch Postgres")
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		db, cache  HealthChecker
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name: "postgres and redis up", db: &pinger{}, cache: &pinger{},
			wantStatus: http.StatusOK, wantBody: "ok",
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name: "postgres down", db: &pinger{err: errors.New("connection refused")}, cache: &pinger{},
			wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy",
			wantChecks: map[string]string{"postgres": "error", "redis": "ok"},
		},
		{
			name: "redis down stops tracking", db: &pinger{}, cache: &pinger{err: errors.New("i/o timeout")},
			wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy",
			wantChecks: map[string]string{"postgres": "ok", "redis": "error"},
		},
		{
			name:       "in-memory store without redis",
			wantStatus: http.StatusOK, wantBody: "ok",
			wantChecks: map[string]string{"postgres": "not configured", "redis": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := getHealth(t, NewHealthHandler(tt.db, tt.cache).Readyz, "/readyz")

			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantBody, resp.Status)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestReadyz_PingsWithDeadline(t *testing.T) {
	db, redis := &pinger{}, &pinger{}
	h := NewHealthHandler(db, redis)

	start := time.Now()
	code, _ := getHealth(t, h.Readyz, "/readyz")

	require.Equal(t, http.StatusOK, code)
	assert.True(t, db.hadDeadline)
	assert.True(t, redis.hadDeadline)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadyz_DoesNotEchoErrors(t *testing.T) {
	redis := &pinger{err: errors.New("dial tcp redis://:hunter2@cache:6379")}
	h := NewHealthHandler(&pinger{}, redis)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}
