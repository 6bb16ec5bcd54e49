package health

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

	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/internal/keycache"
	"github.com/sing3demons/authgateway/pkg/jwks/jwkstest"
	"github.com/sing3demons/authgateway/pkg/kp"
)

func newApp(h *Handler) http.Handler {
	cfg := &config.AppConfig{
		ServiceName:  "test",
		Version:      "1.0",
		LoggerConfig: config.LoggerConfig{Rotation: config.DefaultRotationConfig()},
	}
	app := kp.NewMicroservice(cfg)
	app.Use(kp.LoggerMiddleware(cfg))
	h.Register(app)
	return app.Handler()
}

func get(t *testing.T, handler http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestKeyStatusWarmsEmptyCache(t *testing.T) {
	srv := jwkstest.NewServer(t, jwkstest.NewRSA(t, "xyz"), jwkstest.NewEC(t, "abc"))
	cache := keycache.New(keycache.NewHTTPSource(srv.URL, time.Second))

	code, body := get(t, newApp(NewHandler("test", "1.0", cache, nil)), "/auth/keys")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"abc", "xyz"}, body["kids"])
	assert.Equal(t, false, body["expired"])
	assert.Equal(t, 1, srv.Hits())
}

func TestKeyStatusUsesCachedSnapshot(t *testing.T) {
	srv := jwkstest.NewServer(t, jwkstest.NewRSA(t, "xyz"))
	cache := keycache.New(keycache.NewHTTPSource(srv.URL, time.Second))
	_, err := cache.Keys(context.Background())
	require.NoError(t, err)

	code, _ := get(t, newApp(NewHandler("test", "1.0", cache, nil)), "/auth/keys")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, srv.Hits())
}

func TestKeyStatusUnavailable(t *testing.T) {
	srv := jwkstest.NewServer(t)
	srv.SetStatus(http.StatusInternalServerError)
	cache := keycache.New(keycache.NewHTTPSource(srv.URL, time.Second))

	code, body := get(t, newApp(NewHandler("test", "1.0", cache, nil)), "/auth/keys")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "keys_unavailable", body["code"])
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Check
		wantCode   int
		wantStatus string
	}{
		{name: "no dependencies", wantCode: http.StatusOK, wantStatus: "ok"},
		{
			name:       "all healthy",
			checks:     map[string]Check{"redis": func(context.Context) error { return nil }},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "one failing",
			checks: map[string]Check{
				"redis": func(context.Context) error { return nil },
				"mongo": func(context.Context) error { return errors.New("connection refused") },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, newApp(NewHandler("test", "1.0", nil, tt.checks)), "/healthz")

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, "test", body["service"])
		})
	}
}
