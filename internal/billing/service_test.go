// AngelaMos | 2026
// service_test.go

package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
)

type memoryAccounts struct {
	accounts map[string]*Account
	saves    int
}

func (m *memoryAccounts) LoadAccount(_ context.Context, id string) (*Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, core.ErrNotFound)
	}
	cp := *acc
	cp.Payments = make(map[string]Payment, len(acc.Payments))
	for k, v := range acc.Payments {
		cp.Payments[k] = v
	}
	return &cp, nil
}

func (m *memoryAccounts) SavePayments(_ context.Context, id string, payments map[string]Payment) error {
	m.accounts[id].Payments = payments
	m.saves++
	return nil
}

func (m *memoryAccounts) SaveEndDate(_ context.Context, id string, end time.Time, active bool) error {
	m.accounts[id].EndDate = end
	m.accounts[id].Active = active
	m.saves++
	return nil
}

type extendCall struct {
	account, plan string
	end           time.Time
}

type recordingExtender struct{ calls []extendCall }

func (r *recordingExtender) ExtendKeys(_ context.Context, account, planName string, end time.Time) error {
	r.calls = append(r.calls, extendCall{account, planName, end})
	return nil
}

type serviceFixture struct {
	store   *memoryAccounts
	source  *mockLedgerSource
	slots   *fakeSlots
	keys    *recordingExtender
	service *Service
}

func newServiceFixture(t *testing.T, acc Account) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		store:  &memoryAccounts{accounts: map[string]*Account{acc.ID: &acc}},
		source: &mockLedgerSource{},
		slots:  &fakeSlots{times: map[string]time.Time{}, fail: map[string]bool{}},
		keys:   &recordingExtender{},
	}
	tag := euroe
	f.source.On("TokenTag", mock.Anything, "EUROe").Return(&tag, nil).Maybe()

	f.service = NewService(
		f.store,
		NewLedger(f.source, "EUROe"),
		NewCalculator(f.slots, WithNow(fixedNow)),
		WithKeyExtender(f.keys),
		WithMetrics(metrics.New()),
		WithServiceClock(fixedNow),
	)
	return f
}

func TestRefreshComputesAndPersists(t *testing.T) {
	f := newServiceFixture(t, Account{ID: "acc", Plan: "standard", Alias: alias})
	f.source.On("TransfersTo", mock.Anything, "<9390,0>-", alias).
		Return([]TransferEvent{transfer(t, "tx1", alias, "300000000")}, nil)
	f.slots.times["tx1"] = d0

	sub, err := f.service.Refresh(context.Background(), "acc")
	require.NoError(t, err)

	want := d0.Add(300 * day)
	assert.Equal(t, "standard", sub.Plan)
	assert.True(t, want.Equal(sub.EndDate))
	assert.True(t, sub.Active)

	stored := f.store.accounts["acc"]
	assert.True(t, want.Equal(stored.EndDate))
	assert.True(t, stored.Active)
	assert.InDelta(t, 300.0, stored.Payments["tx1"].PaidDays, 1e-9)

	require.Len(t, f.keys.calls, 1)
	assert.Equal(t, "standard", f.keys.calls[0].plan)
	assert.True(t, want.Equal(f.keys.calls[0].end))
}

func TestRefreshWithoutPlanDoesNotScan(t *testing.T) {
	prev := now.Add(-48 * time.Hour)
	f := newServiceFixture(t, Account{ID: "acc", Alias: alias, EndDate: prev})

	sub, err := f.service.Refresh(context.Background(), "acc")
	require.NoError(t, err)

	assert.Empty(t, sub.Plan)
	assert.True(t, prev.Equal(sub.EndDate))
	assert.False(t, sub.Active)
	assert.Zero(t, f.store.saves)
	f.source.AssertNotCalled(t, "TransfersTo", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshFreePlanWithoutPayments(t *testing.T) {
	f := newServiceFixture(t, Account{ID: "acc", Plan: "free", Alias: alias})
	f.source.On("TransfersTo", mock.Anything, "<9390,0>-", alias).Return([]TransferEvent{}, nil)

	sub, err := f.service.Refresh(context.Background(), "acc")
	require.NoError(t, err)

	assert.True(t, now.Add(365*day).Equal(sub.EndDate))
	assert.True(t, sub.Active)
}

func TestRefreshUpstreamFailureKeepsEndDate(t *testing.T) {
	prev := now.Add(5 * day)
	f := newServiceFixture(t, Account{ID: "acc", Plan: "pro", Alias: alias, EndDate: prev, Active: true})
	f.source.On("TransfersTo", mock.Anything, "<9390,0>-", alias).
		Return([]TransferEvent{transfer(t, "tx1", alias, "3000000")}, nil)
	f.slots.fail["tx1"] = true

	_, err := f.service.Refresh(context.Background(), "acc")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)

	stored := f.store.accounts["acc"]
	assert.True(t, prev.Equal(stored.EndDate))
	assert.True(t, stored.Active)
	assert.Empty(t, f.keys.calls)
}

func TestRefreshUnknownAccount(t *testing.T) {
	f := newServiceFixture(t, Account{ID: "acc"})

	_, err := f.service.Refresh(context.Background(), "nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRefreshUnknownPlan(t *testing.T) {
	f := newServiceFixture(t, Account{ID: "acc", Plan: "platinum", Alias: alias})

	_, err := f.service.Refresh(context.Background(), "acc")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestSetOverrideAppliesAndRefreshes(t *testing.T) {
	f := newServiceFixture(t, Account{ID: "acc", Plan: "standard", Alias: alias})
	f.source.On("TransfersTo", mock.Anything, "<9390,0>-", alias).
		Return([]TransferEvent{transfer(t, "tx1", alias, "1000000")}, nil)
	f.slots.times["tx1"] = now

	_, err := f.service.Refresh(context.Background(), "acc")
	require.NoError(t, err)

	sub, err := f.service.SetOverride(context.Background(), "acc", "tx1", intPtr(10))
	require.NoError(t, err)
	assert.True(t, now.Add(10*day).Equal(sub.EndDate))
	require.NotNil(t, f.store.accounts["acc"].Payments["tx1"].ManualOverride)
	assert.Equal(t, 10, *f.store.accounts["acc"].Payments["tx1"].ManualOverride)

	sub, err = f.service.SetOverride(context.Background(), "acc", "tx1", nil)
	require.NoError(t, err)
	assert.True(t, now.Add(day).Equal(sub.EndDate))
	assert.Nil(t, f.store.accounts["acc"].Payments["tx1"].ManualOverride)
}

func TestSetOverrideUnknownPayment(t *testing.T) {
	f := newServiceFixture(t, Account{ID: "acc", Plan: "standard", Alias: alias, Payments: map[string]Payment{}})

	_, err := f.service.SetOverride(context.Background(), "acc", "nope", intPtr(1))
	assert.ErrorIs(t, err, core.ErrNotFound)
}
