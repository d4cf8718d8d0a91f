// AngelaMos | 2026
// slottime_test.go

package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

func TestHTTPSlotTimesReadsBlockInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/mainnet/transaction/abc", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"block_info":{"height":1,"slot_time":"2026-01-10T08:30:00.5+00:00"}}`))
	}))
	defer srv.Close()

	slots := NewHTTPSlotTimes(srv.Client(), srv.URL+"/", "mainnet", "secret")
	got, err := slots.SlotTime(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 8, 30, 0, 500_000_000, time.UTC), got)
}

func TestHTTPSlotTimesUpstreamFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"detail":"missing"}`},
		{"server error", http.StatusInternalServerError, ``},
		{"bad json", http.StatusOK, `{"block_info":`},
		{"no slot time", http.StatusOK, `{"block_info":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPSlotTimes(srv.Client(), srv.URL, "testnet", "").
				SlotTime(context.Background(), "abc")

			assert.ErrorIs(t, err, core.ErrUpstream)
		})
	}
}

func TestHTTPSlotTimesConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSlotTimes(nil, url, "mainnet", "").SlotTime(context.Background(), "abc")

	assert.ErrorIs(t, err, core.ErrUpstream)
}
