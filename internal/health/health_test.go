package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pokerstats/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeMetrics struct{ metrics worker.Metrics }

func (m fakeMetrics) GetMetrics() worker.Metrics { return m.metrics }

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthEndpoints(t *testing.T) {
	pool := fakeMetrics{metrics: worker.Metrics{ProcessedJobs: 3, QueueSize: 1, QueueCapacity: 8}}

	tests := []struct {
		name       string
		pingErr    error
		path       string
		wantCode   int
		wantStatus string
	}{
		{name: "healthy", path: "/health", wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "unhealthy", path: "/health", pingErr: errors.New("connection refused"), wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
		{name: "ready", path: "/ready", wantCode: http.StatusOK, wantStatus: "ready"},
		{name: "not ready", path: "/ready", pingErr: errors.New("down"), wantCode: http.StatusServiceUnavailable, wantStatus: "not ready"},
		{name: "live ignores database", path: "/live", pingErr: errors.New("down"), wantCode: http.StatusOK, wantStatus: "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer("0", fakePinger{err: tt.pingErr}, pool, zap.NewNop())
			code, body := get(t, s, tt.path)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestHealthReportsImportQueue(t *testing.T) {
	pool := fakeMetrics{metrics: worker.Metrics{ProcessedJobs: 3, QueueSize: 1, QueueCapacity: 8}}
	s := NewServer("0", fakePinger{}, pool, zap.NewNop())

	_, body := get(t, s, "/health")
	imports, ok := body["imports"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), imports["processed"])
	assert.Equal(t, float64(8), imports["queue_capacity"])
}

func TestHealthWithoutDatabase(t *testing.T) {
	s := NewServer("0", nil, nil, zap.NewNop())
	code, body := get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "database is not initialized", body["error"])
}
