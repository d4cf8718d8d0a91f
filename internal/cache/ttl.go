// AngelaMos | 2026
// ttl.go

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Loader[T any] func(ctx context.Context) (T, error)

const DefaultLoadTimeout = 10 * time.Second

// Value is a single lazily refreshed value. Reads within ttl of the last
// successful load are served from memory; the first read after that reloads.
// Concurrent readers of a stale value share one load.
type Value[T any] struct {
	name    string
	ttl     time.Duration
	load    Loader[T]
	now     func() time.Time
	onLoad  func(error)
	timeout time.Duration

	mu        sync.Mutex
	value     T
	loaded    bool
	refreshed time.Time
}

type Option[T any] func(*Value[T])

// WithLoadTimeout bounds each load. Loads run detached from the caller's
// context, so this is the only deadline they see.
func WithLoadTimeout[T any](d time.Duration) Option[T] {
	return func(v *Value[T]) { v.timeout = d }
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(v *Value[T]) { v.now = now }
}

// WithLoadHook is called after every load attempt with its error.
func WithLoadHook[T any](fn func(error)) Option[T] {
	return func(v *Value[T]) { v.onLoad = fn }
}

func New[T any](name string, ttl time.Duration, load Loader[T], opts ...Option[T]) *Value[T] {
	v := &Value[T]{
		name:    name,
		ttl:     ttl,
		load:    load,
		now:     time.Now,
		timeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Get returns the cached value, reloading it first when it is stale or was
// never loaded. A failed reload returns the error and keeps the previous
// value for the next caller. The load keeps the caller's context values but
// not its cancellation.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.loaded && v.now().Sub(v.refreshed) < v.ttl {
		return v.value, nil
	}

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
	fresh, err := v.load(loadCtx)
	cancel()
	if v.onLoad != nil {
		v.onLoad(err)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("refresh %s: %w", v.name, err)
	}

	v.value = fresh
	v.loaded = true
	v.refreshed = v.now()

	return fresh, nil
}

// Peek returns the last loaded value without refreshing it.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.loaded
}

// Invalidate makes the next Get reload.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	v.refreshed = time.Time{}
	v.mu.Unlock()
}

func (v *Value[T]) LastRefreshed() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refreshed
}
