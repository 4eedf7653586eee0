package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/timedmeta/internal/config"
	"github.com/jmylchreest/timedmeta/internal/http/handlers"
	"github.com/jmylchreest/timedmeta/internal/http/middleware"
	"github.com/jmylchreest/timedmeta/internal/observability"
)

func TestServer_RoutesThroughMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, logger, "test")
	handlers.NewHealthHandler("test").Register(srv.API())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, buf.String(), `"path":"/livez"`)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer(config.ServerConfig{}, nil, "")
	assert.NoError(t, srv.Shutdown(t.Context()))
}
