// AngelaMos | 2026
// directory.go

package apikey

import (
	"context"
	"log/slog"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/cache"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
	"github.com/ccdexplorer/ccdexplorer-api/internal/middleware"
)

// Subscriber delivers key-change notifications published by any replica.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handle func(payload string)) error
}

// Directory is the in-memory table of active keys the quota gateway
// resolves against. It reloads after ttl and on every key-change
// notification.
type Directory struct {
	table *cache.Value[map[string]APIKey]
	now   func() time.Time
}

type DirectoryOption func(*directoryOptions)

type directoryOptions struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(o *directoryOptions) { o.now = now }
}

func WithDirectoryMetrics(m *metrics.Metrics) DirectoryOption {
	return func(o *directoryOptions) { o.metrics = m }
}

func NewDirectory(
	repo Repository,
	scope string,
	ttl time.Duration,
	opts ...DirectoryOption,
) *Directory {
	o := directoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	load := func(ctx context.Context) (map[string]APIKey, error) {
		keys, err := repo.ListActive(ctx, scope, o.now())
		if err != nil {
			return nil, err
		}
		table := make(map[string]APIKey, len(keys))
		for _, k := range keys {
			table[k.ID] = k
		}
		slog.Debug("api keys loaded", "count", len(table))
		return table, nil
	}

	return &Directory{
		table: cache.New("api keys", ttl, load,
			cache.WithClock[map[string]APIKey](o.now),
			cache.WithLoadHook[map[string]APIKey](o.metrics.KeyCacheLoaded),
		),
		now: o.now,
	}
}

// Resolve implements middleware.KeyResolver. When a reload fails after an
// earlier success the previous table keeps serving.
func (d *Directory) Resolve(
	ctx context.Context,
	apiKey string,
) (middleware.KeyOwner, bool, error) {
	table, err := d.table.Get(ctx)
	if err != nil {
		stale, ok := d.table.Peek()
		if !ok {
			return middleware.KeyOwner{}, false, err
		}
		slog.Warn("serving stale api key table", "error", err)
		table = stale
	}

	k, ok := table[apiKey]
	if !ok || !k.ActiveAt(d.now()) {
		return middleware.KeyOwner{}, false, nil
	}

	return middleware.KeyOwner{AccountID: k.APIAccountID, Group: k.APIGroup}, true, nil
}

func (d *Directory) Invalidate() {
	d.table.Invalidate()
}

// Listen invalidates the table on every message on channel until ctx is
// done. It blocks.
func (d *Directory) Listen(ctx context.Context, sub Subscriber, channel string) error {
	return sub.Subscribe(ctx, channel, func(payload string) {
		slog.Debug("api key change", "account", payload)
		d.Invalidate()
	})
}
