package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-evidence-workers/internal/common/config"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/pkg/registry"
)

type stubGateway struct{ err error }

func (s stubGateway) HealthCheck(context.Context) error { return s.err }

type stubWorkers []string

func (s stubWorkers) Running() []string { return s }

func TestServeMux_Health(t *testing.T) {
	mux := newServeMux(stubGateway{}, stubWorkers{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestServeMux_Ready(t *testing.T) {
	t.Run("gateway reachable", func(t *testing.T) {
		mux := newServeMux(stubGateway{}, stubWorkers{"reconcile-sources", "format-citations"}, nil)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status  string   `json:"status"`
			Workers []string `json:"workers"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, []string{"format-citations", "reconcile-sources"}, body.Workers)
	})

	t.Run("gateway down", func(t *testing.T) {
		mux := newServeMux(stubGateway{err: errors.New("unavailable")}, stubWorkers{}, nil)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "unavailable")
	})
}

func TestServeMux_Metrics(t *testing.T) {
	mux := newServeMux(stubGateway{}, stubWorkers{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeMux_Activities(t *testing.T) {
	cfg := &config.Config{
		App:     config.AppConfig{Version: "1.2.0"},
		Workers: map[string]config.WorkerConfig{"record-evidence": {Enabled: false}},
	}
	mux := newServeMux(stubGateway{}, stubWorkers{}, activityRegistry(cfg))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body registry.ActivityRegistry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1.2.0", body.Version)
	require.Len(t, body.Activities, 6)

	record, ok := body.Find("record-evidence")
	require.True(t, ok)
	assert.False(t, record.Enabled)
	retrieve, ok := body.Find("retrieve-sources")
	require.True(t, ok)
	assert.True(t, retrieve.Enabled)
}

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, 5, time.Millisecond, log, "test op")
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(func() error {
			calls++
			return errors.New("connection refused")
		}, 3, time.Millisecond, log, "test op")
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "test op failed after 3 attempts")
	})
}

func TestBuildDependencies_DefaultTables(t *testing.T) {
	cfg := &config.Config{}
	cfg.Evidence.Config = cfg.Evidence.Config.WithDefaults()

	deps, err := buildDependencies(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, deps.reconciler)
	assert.NotNil(t, deps.formatter)
	assert.Nil(t, deps.alerts)
}

func TestBuildDependencies_MissingTables(t *testing.T) {
	cfg := &config.Config{}
	cfg.Evidence.Config = cfg.Evidence.Config.WithDefaults()
	cfg.Evidence.TrustTablesPath = "does-not-exist.yaml"

	_, err := buildDependencies(context.Background(), cfg, logger.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trust tables")
}

func TestHandlerTimeout(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		"reconcile-sources": {Enabled: true, Timeout: 2500},
	}}
	assert.Equal(t, 2500*time.Millisecond, handlerTimeout(cfg, "reconcile-sources", time.Second))
	assert.Equal(t, 30*time.Second, handlerTimeout(cfg, "format-citations", time.Second))
}
