// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/health"
)

func TestNewUsesConfiguredAddress(t *testing.T) {
	s := New(Config{ServerConfig: config.ServerConfig{Host: "127.0.0.1", Port: 7000}})
	assert.Equal(t, "127.0.0.1:7000", s.Addr())
}

func TestShutdownFailsReadinessFirst(t *testing.T) {
	h := health.NewHandler()
	s := New(Config{
		ServerConfig:  config.ServerConfig{Host: "127.0.0.1", Port: 0},
		HealthHandler: h,
	})
	h.RegisterRoutes(s.Router())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx, 10*time.Millisecond))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartReturnsNilAfterShutdown(t *testing.T) {
	s := New(Config{ServerConfig: config.ServerConfig{Host: "127.0.0.1", Port: 0}})

	errs := make(chan error, 1)
	go func() { errs <- s.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background(), 0))

	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
