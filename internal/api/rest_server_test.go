package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annel0/wildlands/internal/auth"
	"github.com/annel0/wildlands/internal/engine"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats engine.Stats

func (s fixedStats) Stats() engine.Stats { return engine.Stats(s) }

func newTestServer(t *testing.T) (*RestServer, *prometheus.Registry) {
	t.Helper()
	tokens, err := auth.NewTokenService("", time.Hour)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{
		Claims:       auth.NewClaimService(storage.NewMemoryPlayerRepo(), tokens, 0, 0, true),
		Stats:        fixedStats{Tick: 42, Players: 3, Chunks: 27},
		Registerer:   reg,
		Gatherers:    []prometheus.Gatherer{reg},
		ServeMetrics: true,
		WebSocket: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}),
	})
	return rs, reg
}

func do(rs *RestServer, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rs.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	rs, _ := newTestServer(t)
	w := do(rs, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 42, body["tick"])
	assert.EqualValues(t, 3, body["players"])
	assert.Contains(t, body, "runtime")
}

func TestClaimEndpoint(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(rs, http.MethodPost, "/session/claim", []byte(`{"login":"Fox","password":"moon"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res auth.ClaimResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.PlayerID)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"не JSON", `{`, http.StatusBadRequest},
		{"нет логина", `{}`, http.StatusBadRequest},
		{"плохой логин", `{"login":"a b"}`, http.StatusBadRequest},
		{"неверный пароль", `{"login":"fox","password":"sun"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, do(rs, http.MethodPost, "/session/claim", []byte(tt.body)).Code)
		})
	}
}

func TestMetricsAndWebSocketRoutes(t *testing.T) {
	rs, _ := newTestServer(t)
	do(rs, http.MethodGet, "/health", nil)

	w := do(rs, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_http_request_duration_seconds")

	assert.Equal(t, http.StatusUnauthorized, do(rs, http.MethodGet, "/ws", nil).Code)
}

func TestClaimPreflight(t *testing.T) {
	tokens, err := auth.NewTokenService("", time.Hour)
	require.NoError(t, err)
	rs := NewRestServer(Config{
		Claims:         auth.NewClaimService(storage.NewMemoryPlayerRepo(), tokens, 0, 0, false),
		Registerer:     prometheus.NewRegistry(),
		AllowedOrigins: []string{"https://play.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/session/claim", nil)
	req.Header.Set("Origin", "https://play.example")
	w := httptest.NewRecorder()
	rs.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://play.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/session/claim", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	rs.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
