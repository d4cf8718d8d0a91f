// AngelaMos | 2026
// fake_test.go

package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/apikey"
	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

var (
	errBoom = errors.New("boom")
	t0      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

const testNet = "mainnet"

// memoryRepo mirrors the unique indexes on email and alias_id.
type memoryRepo struct {
	mu      sync.Mutex
	users   map[string]User
	aliases map[int]string

	// raceOnce makes the next Create collide as if another signup won.
	raceOnce bool
}

func newMemoryRepo(aliases int) *memoryRepo {
	r := &memoryRepo{users: map[string]User{}, aliases: map[int]string{}}
	for i := range aliases {
		r.aliases[i] = fmt.Sprintf("alias-%d", i)
	}
	return r
}

func (r *memoryRepo) put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (r *memoryRepo) first(match func(User) bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	return r.first(func(u User) bool { return u.Email == email })
}

func (r *memoryRepo) GetByResetToken(_ context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, core.ErrNotFound
	}
	return r.first(func(u User) bool { return u.ResetPasswordToken == tokenHash })
}

func (r *memoryRepo) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.raceOnce {
		r.raceOnce = false
		r.users["racer"] = User{
			ID:             "racer",
			Email:          "racer@example.com",
			AliasID:        user.AliasID,
			AliasAccountID: user.AliasAccountID,
			APIAccountID:   "racer",
		}
		return core.ErrDuplicateKey
	}

	for _, u := range r.users {
		if u.Email == user.Email || u.AliasID == user.AliasID {
			return core.ErrDuplicateKey
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryRepo) Replace(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *memoryRepo) NextAliasID(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for _, u := range r.users {
		if u.AliasID >= next {
			next = u.AliasID + 1
		}
	}
	return next, nil
}

func (r *memoryRepo) AliasFor(_ context.Context, n string, aliasID int) (*Alias, error) {
	alias, ok := r.aliases[aliasID]
	if !ok || n != testNet {
		return nil, core.ErrNotFound
	}
	return &Alias{Net: n, AliasID: aliasID, Alias: alias}, nil
}

func (r *memoryRepo) List(_ context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []User
	for _, u := range r.users {
		if params.Plan == "" || u.Plan == params.Plan {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AliasID < out[j].AliasID })

	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (r *memoryRepo) CountByPlan(context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, u := range r.users {
		out[u.Plan]++
	}
	return out, nil
}

type fakeKeys struct {
	mu      sync.Mutex
	keys    []apikey.APIKey
	resets  int
	created []string
}

func (k *fakeKeys) NewKey(_ context.Context, accountID, planName string, planEnd time.Time) (*apikey.APIKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key := apikey.APIKey{
		ID:           fmt.Sprintf("key-%d", len(k.keys)),
		APIAccountID: accountID,
		APIGroup:     planName,
		EndDate:      planEnd,
	}
	k.keys = append(k.keys, key)
	k.created = append(k.created, planName)
	return &key, nil
}

func (k *fakeKeys) DeleteKey(_ context.Context, accountID, keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i, key := range k.keys {
		if key.ID == keyID && key.APIAccountID == accountID {
			k.keys = append(k.keys[:i], k.keys[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (k *fakeKeys) ListForAccount(_ context.Context, accountID string) ([]apikey.APIKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []apikey.APIKey
	for _, key := range k.keys {
		if key.APIAccountID == accountID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (k *fakeKeys) ResetForAccount(_ context.Context, accountID string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.resets++
	var kept []apikey.APIKey
	var n int64
	for _, key := range k.keys {
		if key.APIAccountID == accountID {
			n++
			continue
		}
		kept = append(kept, key)
	}
	k.keys = kept
	return n, nil
}

type usageEntry struct {
	used int64
	ttl  time.Duration
}

type fakeUsage struct {
	counts map[plan.Window]usageEntry
	resets []plan.Window
	err    error
}

func (u *fakeUsage) Usage(_ context.Context, _ string, window plan.Window) (int64, time.Duration, error) {
	if u.err != nil {
		return 0, 0, u.err
	}
	e := u.counts[window]
	return e.used, e.ttl, nil
}

func (u *fakeUsage) Reset(_ context.Context, _ string, window plan.Window) error {
	u.resets = append(u.resets, window)
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (*billing.Subscription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &billing.Subscription{}, nil
}

type userFixture struct {
	repo    *memoryRepo
	keys    *fakeKeys
	usage   *fakeUsage
	refresh *fakeRefresher
	service *Service
}

func newUserFixture() *userFixture {
	f := &userFixture{
		repo:    newMemoryRepo(3),
		keys:    &fakeKeys{},
		usage:   &fakeUsage{counts: map[plan.Window]usageEntry{}},
		refresh: &fakeRefresher{},
	}
	f.service = NewService(f.repo, f.keys, f.usage, f.refresh, testNet).
		WithNow(func() time.Time { return t0 })

	f.repo.put(User{
		ID:             "alice",
		AliasID:        0,
		AliasAccountID: "alias-0",
		APIAccountID:   "alice",
		Email:          "alice@example.com",
		PlanEndDate:    t0,
	})
	return f
}
