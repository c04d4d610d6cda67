package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Domenick1991/farehunter/config"
	"github.com/Domenick1991/farehunter/internal/source"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`search: {default_sources: [mock]}`))
	require.NoError(t, err)
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewRegistry(t *testing.T) {
	cfg := testConfig(t)
	reg := NewRegistry(cfg, logger.NewNop())

	assert.Equal(t, []string{source.Mock, source.Skyscanner, source.GoogleFlights}, reg.Names())
	assert.Equal(t, "Google Flights", reg.Label(source.GoogleFlights))

	all, err := reg.Expand([]string{source.All})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	for _, name := range all {
		src, err := reg.New(name)
		require.NoError(t, err)
		assert.Equal(t, name, src.Name())
		_, wrapped := src.(source.Wrapper)
		assert.True(t, wrapped, name)
	}
}

func TestNewDispatcher(t *testing.T) {
	cfg := testConfig(t)
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())

	d, err := NewDispatcher(context.Background(), cfg.Reports, logger.NewNop(), m)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())

	cfg.Reports.WhatsApp.Enabled = true
	cfg.Reports.WhatsApp.Provider = "callmebot"
	d, err = NewDispatcher(context.Background(), cfg.Reports, logger.NewNop(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
}

func TestRouter_HealthAndDocs(t *testing.T) {
	cfg := testConfig(t)
	doc := filepath.Join(t.TempDir(), "openapi.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"openapi":"3.0.3"}`), 0o600))
	cfg.HTTP.SwaggerFile = doc

	router := NewRouter(&Container{Config: cfg, Logger: logger.NewNop(), Registry: NewRegistry(cfg, logger.NewNop())})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3.0.3")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
