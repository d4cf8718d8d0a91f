// AngelaMos | 2026
// quota.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

const APIKeyHeader = "x-ccdexplorer-key"

const (
	APIAccountKey contextKey = "api_account_id"
	APIGroupKey   contextKey = "api_group"
)

// KeyOwner is who an API key belongs to and which group meters it.
type KeyOwner struct {
	AccountID string
	Group     string
}

type KeyResolver interface {
	Resolve(ctx context.Context, apiKey string) (KeyOwner, bool, error)
}

type WindowCount struct {
	Window plan.Window
	Count  int64
	TTL    time.Duration
}

// QuotaCounter counts one request against every given window of an account
// and reports the counts after the increment.
type QuotaCounter interface {
	Hit(ctx context.Context, account string, windows []plan.Window) ([]WindowCount, error)
}

// Quota meters /v2 traffic per API key against the plan of the key's group.
// Groups that are not a plan are not limited. When the counter store fails
// the request is let through.
func Quota(
	resolver KeyResolver,
	counter QuotaCounter,
	m *metrics.Metrics,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized access.")
				return
			}

			owner, ok, err := resolver.Resolve(r.Context(), apiKey)
			if err != nil {
				slog.Error("resolve api key", "error", err)
				writeMessage(w, http.StatusServiceUnavailable, "Service unavailable.")
				return
			}
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized access.")
				return
			}

			if f := fieldsFrom(r.Context()); f != nil {
				f.account = owner.AccountID
			}

			ctx := context.WithValue(r.Context(), APIAccountKey, owner.AccountID)
			ctx = context.WithValue(ctx, APIGroupKey, owner.Group)
			r = r.WithContext(ctx)

			p, limited := plan.Lookup(owner.Group)
			quotas := p.Quotas()
			if !limited || len(quotas) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			windows := make([]plan.Window, 0, len(quotas))
			for _, q := range quotas {
				windows = append(windows, q.Window)
			}

			counts, err := counter.Hit(r.Context(), owner.AccountID, windows)
			if err != nil {
				slog.Warn("quota counter error, failing open",
					"error", err,
					"api_account_id", owner.AccountID,
				)
				m.QuotaCounterFailed()
				next.ServeHTTP(w, r)
				return
			}

			if exceeded, retryAfter := overQuota(quotas, counts); exceeded != "" {
				m.QuotaRejected(p.Name, string(exceeded))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeMessage(w, http.StatusTooManyRequests, "Too many requests.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// overQuota returns the longest exceeded window and the seconds until it
// resets, or an empty window when every count is within its limit.
func overQuota(quotas []plan.Quota, counts []WindowCount) (plan.Window, int) {
	byWindow := make(map[plan.Window]WindowCount, len(counts))
	for _, c := range counts {
		byWindow[c.Window] = c
	}

	var (
		exceeded plan.Window
		wait     time.Duration
	)
	for _, q := range quotas {
		c, ok := byWindow[q.Window]
		if !ok || c.Count <= q.Limit {
			continue
		}
		ttl := c.TTL
		if ttl <= 0 {
			ttl = q.Window.Duration()
		}
		if ttl >= wait {
			exceeded, wait = q.Window, ttl
		}
	}

	if exceeded == "" {
		return "", 0
	}

	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return exceeded, secs
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	core.JSON(w, status, map[string]string{"message": message})
}

func GetAPIAccount(ctx context.Context) string {
	if id, ok := ctx.Value(APIAccountKey).(string); ok {
		return id
	}
	return ""
}

func GetAPIGroup(ctx context.Context) string {
	if g, ok := ctx.Value(APIGroupKey).(string); ok {
		return g
	}
	return ""
}

// RedisQuotaCounter keeps fixed-window counters in redis under
// v2:*:{account}:{window}. The first hit of a window sets its expiry.
type RedisQuotaCounter struct {
	rdb *redis.Client
}

func NewRedisQuotaCounter(rdb *redis.Client) *RedisQuotaCounter {
	return &RedisQuotaCounter{rdb: rdb}
}

func CounterKey(account string, window plan.Window) string {
	return fmt.Sprintf("v2:*:%s:%s", account, window)
}

func (c *RedisQuotaCounter) Hit(
	ctx context.Context,
	account string,
	windows []plan.Window,
) ([]WindowCount, error) {
	pipe := c.rdb.TxPipeline()

	incrs := make([]*redis.IntCmd, len(windows))
	ttls := make([]*redis.DurationCmd, len(windows))
	for i, win := range windows {
		key := CounterKey(account, win)
		incrs[i] = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, win.Duration())
		ttls[i] = pipe.TTL(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("count requests for %s: %w", account, err)
	}

	out := make([]WindowCount, len(windows))
	for i, win := range windows {
		out[i] = WindowCount{
			Window: win,
			Count:  incrs[i].Val(),
			TTL:    ttls[i].Val(),
		}
	}
	return out, nil
}

// Usage reads a window's count and time to reset without counting.
func (c *RedisQuotaCounter) Usage(
	ctx context.Context,
	account string,
	window plan.Window,
) (int64, time.Duration, error) {
	key := CounterKey(account, window)

	pipe := c.rdb.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("read usage for %s: %w", account, err)
	}

	used, err := get.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read usage for %s: %w", account, err)
	}

	return used, max(ttl.Val(), 0), nil
}

func (c *RedisQuotaCounter) Reset(
	ctx context.Context,
	account string,
	window plan.Window,
) error {
	if err := c.rdb.Del(ctx, CounterKey(account, window)).Err(); err != nil {
		return fmt.Errorf("reset %s counter for %s: %w", window, account, err)
	}
	return nil
}
