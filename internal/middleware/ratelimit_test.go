// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestLocalLimiterBurstThenRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLocalLimiter()
	l.now = func() time.Time { return now }
	limit := PerMinute(60, 2)

	assert.Equal(t, 1, l.allow("k", limit).Allowed)
	assert.Equal(t, 1, l.allow("k", limit).Allowed)

	denied := l.allow("k", limit)
	assert.Equal(t, 0, denied.Allowed)
	assert.Equal(t, time.Second, denied.RetryAfter)

	assert.Equal(t, 1, l.allow("other", limit).Allowed)

	now = now.Add(time.Second)
	assert.Equal(t, 1, l.allow("k", limit).Allowed)
}

func TestLocalLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLocalLimiter()
	l.now = func() time.Time { return now }

	l.allow("idle", PerMinute(10, 1))
	now = now.Add(localEntryTTL + time.Second)
	l.allow("fresh", PerMinute(10, 1))

	assert.NotContains(t, l.limiters, "idle")
	assert.Contains(t, l.limiters, "fresh")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "1.1.1.1, 10.0.0.3")
	assert.Equal(t, "10.0.0.3", ClientIP(req))
	assert.Equal(t, "ratelimit:ip:10.0.0.3", KeyByIP(req))
}

func TestPerWindow(t *testing.T) {
	assert.Equal(t, time.Minute, PerWindow(10, 1, 0).Period)
	assert.Equal(t, 30*time.Second, PerWindow(10, 1, 30*time.Second).Period)
}

func TestRequestIDIsSetAndPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestRateLimiterFallsBackWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, RateLimitConfig{Limit: PerMinute(60, 1)})
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)

	limited := send()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
}
