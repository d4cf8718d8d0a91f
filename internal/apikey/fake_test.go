// AngelaMos | 2026
// fake_test.go

package apikey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

type memoryRepo struct {
	mu    sync.Mutex
	keys  map[string]APIKey
	loads int
	err   error
}

func newMemoryRepo(keys ...APIKey) *memoryRepo {
	r := &memoryRepo{keys: map[string]APIKey{}}
	for _, k := range keys {
		r.keys[k.ID] = k
	}
	return r
}

func (r *memoryRepo) sorted(match func(APIKey) bool) []APIKey {
	var out []APIKey
	for _, k := range r.keys {
		if match(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepo) ListByAccount(_ context.Context, scope, accountID string) ([]APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(k APIKey) bool {
		return k.Scope == scope && k.APIAccountID == accountID
	}), nil
}

func (r *memoryRepo) ListActive(_ context.Context, scope string, now time.Time) ([]APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.err != nil {
		return nil, r.err
	}
	return r.sorted(func(k APIKey) bool {
		return k.Scope == scope && k.ActiveAt(now)
	}), nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, fmt.Errorf("get key: %w", core.ErrNotFound)
	}
	return &k, nil
}

func (r *memoryRepo) Create(_ context.Context, key *APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.ID]; ok {
		return core.ErrDuplicateKey
	}
	r.keys[key.ID] = *key
	return nil
}

func (r *memoryRepo) Replace(_ context.Context, key *APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.ID] = *key
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.keys, id)
	return nil
}

func (r *memoryRepo) DeleteByAccount(_ context.Context, scope, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, k := range r.keys {
		if k.Scope == scope && k.APIAccountID == accountID {
			delete(r.keys, id)
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, _, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

// channelSubscriber hands every payload sent on msgs to the handler and
// signals handled once it returns.
type channelSubscriber struct {
	msgs    chan string
	handled chan struct{}
}

func (s channelSubscriber) Subscribe(ctx context.Context, _ string, handle func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.msgs:
			handle(m)
			s.handled <- struct{}{}
		}
	}
}

var errBoom = errors.New("boom")
