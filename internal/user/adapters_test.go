// AngelaMos | 2026
// adapters_test.go

package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/auth"
	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

func newAccounts(repo *memoryRepo) *Accounts {
	a := NewAccounts(repo, "https://api.ccdexplorer.io", testNet)
	a.now = func() time.Time { return t0 }
	return a
}

func TestAccountsCreateAllocatesNextAlias(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(3)
	a := newAccounts(repo)

	first, err := a.Create(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	second, err := a.Create(ctx, "b@example.com", "hash")
	require.NoError(t, err)

	assert.Equal(t, "alias-0", first.AliasAccountID)
	assert.Equal(t, "alias-1", second.AliasAccountID)
	assert.Equal(t, auth.UserInfo{
		ID:             first.ID,
		Email:          "a@example.com",
		PasswordHash:   "hash",
		Role:           RoleUser,
		AliasAccountID: "alias-0",
	}, *first)

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, stored.APIAccountID)
	assert.NotEmpty(t, stored.Token)
	assert.Equal(t, t0, stored.PlanEndDate)
	assert.Empty(t, stored.Plan)
}

func TestAccountsCreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	a := newAccounts(newMemoryRepo(3))

	_, err := a.Create(ctx, "a@example.com", "hash")
	require.NoError(t, err)

	_, err = a.Create(ctx, "a@example.com", "hash")
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestAccountsCreatePoolExhausted(t *testing.T) {
	ctx := context.Background()
	a := newAccounts(newMemoryRepo(1))

	_, err := a.Create(ctx, "a@example.com", "hash")
	require.NoError(t, err)

	_, err = a.Create(ctx, "b@example.com", "hash")
	assert.ErrorIs(t, err, auth.ErrAliasPoolExhausted)
}

func TestAccountsCreateRetriesAliasRace(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(3)
	repo.raceOnce = true
	a := newAccounts(repo)

	info, err := a.Create(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, "alias-1", info.AliasAccountID)
}

func TestAccountsResetToken(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(3)
	a := newAccounts(repo)

	info, err := a.Create(ctx, "a@example.com", "old")
	require.NoError(t, err)

	t.Run("valid token sets the password once", func(t *testing.T) {
		require.NoError(t, a.SetResetToken(ctx, info.ID, "tok-hash", t0.Add(time.Hour)))

		got, err := a.ConsumeResetToken(ctx, "tok-hash", "new")
		require.NoError(t, err)
		assert.Equal(t, "new", got.PasswordHash)

		_, err = a.ConsumeResetToken(ctx, "tok-hash", "newer")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("expired token is burned", func(t *testing.T) {
		require.NoError(t, a.SetResetToken(ctx, info.ID, "old-hash", t0.Add(-time.Minute)))

		_, err := a.ConsumeResetToken(ctx, "old-hash", "other")
		assert.ErrorIs(t, err, core.ErrTokenExpired)

		stored, err := repo.GetByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", stored.PasswordHash)
		assert.Empty(t, stored.ResetPasswordToken)
		assert.Nil(t, stored.ResetExpiresAt)
	})
}

func TestAccountsUpdatePassword(t *testing.T) {
	ctx := context.Background()
	a := newAccounts(newMemoryRepo(3))

	info, err := a.Create(ctx, "a@example.com", "old")
	require.NoError(t, err)
	require.NoError(t, a.UpdatePassword(ctx, info.ID, "new"))

	got, err := a.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	assert.ErrorIs(t, a.UpdatePassword(ctx, "nobody", "x"), core.ErrNotFound)
}

func TestBillingStore(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	store := NewBillingStore(f.repo)

	payments := map[string]billing.Payment{
		"tx1": {TxHash: "tx1", TxDate: "2026-01-01T00:00:00Z", PaidDays: 10},
	}
	require.NoError(t, store.SavePayments(ctx, "alice", payments))
	end := t0.Add(48 * time.Hour)
	require.NoError(t, store.SaveEndDate(ctx, "alice", end, true))

	account, err := store.LoadAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alias-0", account.Alias)
	assert.Equal(t, payments, account.Payments)
	assert.Equal(t, end, account.EndDate)
	assert.True(t, account.Active)

	_, err = store.LoadAccount(ctx, "nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
