// AngelaMos | 2026
// directory_test.go

package apikey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
)

const scope = "https://api.ccdexplorer.io"

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestDirectoryResolve(t *testing.T) {
	repo := newMemoryRepo(
		APIKey{ID: "k1", Scope: scope, APIAccountID: "acc-1", APIGroup: "standard", EndDate: t0.Add(time.Hour)},
		APIKey{ID: "old", Scope: scope, APIAccountID: "acc-1", APIGroup: "standard", EndDate: t0.Add(-time.Hour)},
		APIKey{ID: "dev", Scope: "http://localhost:7000", APIAccountID: "acc-1", APIGroup: "free", EndDate: t0.Add(time.Hour)},
	)
	c := &clock{now: t0}
	d := NewDirectory(repo, scope, 5*time.Second, WithDirectoryClock(c.Now), WithDirectoryMetrics(metrics.New()))
	ctx := context.Background()

	owner, ok, err := d.Resolve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "acc-1", owner.AccountID)
	assert.Equal(t, "standard", owner.Group)

	for _, k := range []string{"old", "dev", "missing"} {
		_, ok, err := d.Resolve(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	assert.Equal(t, 1, repo.loads)
}

func TestDirectoryReloadsAfterTTL(t *testing.T) {
	repo := newMemoryRepo()
	c := &clock{now: t0}
	d := NewDirectory(repo, scope, 5*time.Second, WithDirectoryClock(c.Now))
	ctx := context.Background()

	_, ok, _ := d.Resolve(ctx, "new")
	assert.False(t, ok)

	require.NoError(t, repo.Create(ctx, &APIKey{
		ID: "new", Scope: scope, APIAccountID: "acc", APIGroup: "free", EndDate: t0.Add(time.Hour),
	}))

	c.now = t0.Add(4 * time.Second)
	_, ok, _ = d.Resolve(ctx, "new")
	assert.False(t, ok, "served from cache within ttl")

	c.now = t0.Add(5 * time.Second)
	_, ok, _ = d.Resolve(ctx, "new")
	assert.True(t, ok)
	assert.Equal(t, 2, repo.loads)
}

func TestDirectoryKeyExpiresWithinTTL(t *testing.T) {
	repo := newMemoryRepo(APIKey{ID: "k", Scope: scope, APIAccountID: "a", APIGroup: "pro", EndDate: t0.Add(time.Second)})
	c := &clock{now: t0}
	d := NewDirectory(repo, scope, time.Minute, WithDirectoryClock(c.Now))

	_, ok, _ := d.Resolve(context.Background(), "k")
	assert.True(t, ok)

	c.now = t0.Add(2 * time.Second)
	_, ok, _ = d.Resolve(context.Background(), "k")
	assert.False(t, ok)
}

func TestDirectoryServesStaleTableOnReloadError(t *testing.T) {
	repo := newMemoryRepo(APIKey{ID: "k", Scope: scope, APIAccountID: "a", APIGroup: "pro", EndDate: t0.Add(time.Hour)})
	c := &clock{now: t0}
	d := NewDirectory(repo, scope, time.Second, WithDirectoryClock(c.Now))
	ctx := context.Background()

	_, ok, err := d.Resolve(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	repo.err = errBoom
	c.now = t0.Add(2 * time.Second)
	_, ok, err = d.Resolve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirectoryFirstLoadErrorIsReturned(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errBoom
	d := NewDirectory(repo, scope, time.Second)

	_, _, err := d.Resolve(context.Background(), "k")
	assert.ErrorIs(t, err, errBoom)
}

func TestDirectoryListenInvalidates(t *testing.T) {
	repo := newMemoryRepo()
	c := &clock{now: t0}
	d := NewDirectory(repo, scope, time.Hour, WithDirectoryClock(c.Now))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := d.Resolve(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 1, repo.loads)

	sub := channelSubscriber{msgs: make(chan string), handled: make(chan struct{})}
	done := make(chan error, 1)
	go func() { done <- d.Listen(ctx, sub, "keys") }()

	sub.msgs <- "acc"
	<-sub.handled
	_, _, err = d.Resolve(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)

	cancel()
	assert.NoError(t, <-done)
}
