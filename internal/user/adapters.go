// AngelaMos | 2026
// adapters.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ccdexplorer/ccdexplorer-api/internal/auth"
	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

const maxAliasAttempts = 3

var errAliasContended = errors.New("alias allocation contended")

// Accounts exposes the user store to authentication.
type Accounts struct {
	repo  Repository
	scope string
	net   string
	now   func() time.Time
}

func NewAccounts(repo Repository, scope, net string) *Accounts {
	return &Accounts{repo: repo, scope: scope, net: net, now: time.Now}
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role(),
		Plan:           u.Plan,
		AliasAccountID: u.AliasAccountID,
	}
}

func (a *Accounts) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	u, err := a.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (a *Accounts) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	u, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

// Create registers a new account and hands it the next free deposit alias.
// Two signups racing for the same alias collide on the unique index; the
// loser retries with the following alias.
func (a *Accounts) Create(ctx context.Context, email, passwordHash string) (*auth.UserInfo, error) {
	for range maxAliasAttempts {
		_, err := a.repo.GetByEmail(ctx, email)
		if err == nil {
			return nil, fmt.Errorf("create %s: %w", email, core.ErrDuplicateKey)
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}

		aliasID, err := a.repo.NextAliasID(ctx)
		if err != nil {
			return nil, err
		}

		alias, err := a.repo.AliasFor(ctx, a.net, aliasID)
		if errors.Is(err, core.ErrNotFound) {
			return nil, auth.ErrAliasPoolExhausted
		}
		if err != nil {
			return nil, err
		}

		id := uuid.NewString()
		u := &User{
			ID:             id,
			Scope:          a.scope,
			Token:          uuid.NewString(),
			AliasID:        aliasID,
			AliasAccountID: alias.Alias,
			APIAccountID:   id,
			Email:          email,
			PasswordHash:   passwordHash,
			PlanEndDate:    a.now().UTC(),
		}

		err = a.repo.Create(ctx, u)
		if err == nil {
			slog.Info("account created", "api_account_id", id, "alias_id", aliasID)
			return toUserInfo(u), nil
		}
		if !errors.Is(err, core.ErrDuplicateKey) {
			return nil, err
		}
		slog.Debug("alias taken concurrently, retrying", "alias_id", aliasID)
	}

	return nil, errAliasContended
}

func (a *Accounts) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	u, err := a.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	return a.repo.Replace(ctx, u)
}

func (a *Accounts) SetResetToken(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt time.Time,
) error {
	u, err := a.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	exp := expiresAt.UTC()
	u.ResetPasswordToken = tokenHash
	u.ResetExpiresAt = &exp
	return a.repo.Replace(ctx, u)
}

// ConsumeResetToken sets the new password and burns the token. An expired
// token is burned too.
func (a *Accounts) ConsumeResetToken(
	ctx context.Context,
	tokenHash, passwordHash string,
) (*auth.UserInfo, error) {
	u, err := a.repo.GetByResetToken(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	expired := u.ResetExpiresAt == nil || !a.now().Before(*u.ResetExpiresAt)

	u.ResetPasswordToken = ""
	u.ResetExpiresAt = nil
	if !expired {
		u.PasswordHash = passwordHash
	}
	if err := a.repo.Replace(ctx, u); err != nil {
		return nil, err
	}

	if expired {
		return nil, core.ErrTokenExpired
	}
	return toUserInfo(u), nil
}

// BillingStore exposes the billing fields of the user store.
type BillingStore struct {
	repo Repository
}

func NewBillingStore(repo Repository) *BillingStore {
	return &BillingStore{repo: repo}
}

func (b *BillingStore) LoadAccount(ctx context.Context, accountID string) (*billing.Account, error) {
	u, err := b.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &billing.Account{
		ID:       u.ID,
		Plan:     u.Plan,
		Alias:    u.AliasAccountID,
		Payments: u.Payments,
		EndDate:  u.PlanEndDate,
		Active:   u.IsActive(),
	}, nil
}

func (b *BillingStore) SavePayments(
	ctx context.Context,
	accountID string,
	payments map[string]billing.Payment,
) error {
	u, err := b.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	u.Payments = payments
	return b.repo.Replace(ctx, u)
}

func (b *BillingStore) SaveEndDate(
	ctx context.Context,
	accountID string,
	end time.Time,
	active bool,
) error {
	u, err := b.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	u.PlanEndDate = end.UTC()
	u.Active = &active
	return b.repo.Replace(ctx, u)
}
