// AngelaMos | 2026
// service.go

package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

const freeKeyLifetime = 365 * 24 * time.Hour

// Publisher announces key changes to every replica.
type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

// Invalidator drops the local key table so this replica sees a change
// immediately, even before the notification comes back.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	repo    Repository
	scope   string
	channel string
	pub     Publisher
	local   Invalidator
	now     func() time.Time
}

func NewService(
	repo Repository,
	scope, channel string,
	pub Publisher,
	local Invalidator,
) *Service {
	return &Service{
		repo:    repo,
		scope:   scope,
		channel: channel,
		pub:     pub,
		local:   local,
		now:     time.Now,
	}
}

// WithNow replaces the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewKey issues a key under the account's current plan. Free keys run for a
// year; paid keys end with the plan.
func (s *Service) NewKey(
	ctx context.Context,
	accountID, planName string,
	planEnd time.Time,
) (*APIKey, error) {
	if planName == "" {
		return nil, fmt.Errorf("new key: %w", core.ErrInvalidInput)
	}

	end := planEnd
	if plan.IsFree(planName) {
		end = s.now().UTC().Add(freeKeyLifetime)
	}

	key := &APIKey{
		ID:           uuid.New().String(),
		Scope:        s.scope,
		APIAccountID: accountID,
		APIGroup:     planName,
		EndDate:      end.UTC(),
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}

	s.changed(ctx, accountID)
	return key, nil
}

// DeleteKey removes one of the account's keys. A key owned by anyone else
// reads as not found.
func (s *Service) DeleteKey(ctx context.Context, accountID, keyID string) error {
	key, err := s.repo.Get(ctx, keyID)
	if err != nil {
		return err
	}
	if key.APIAccountID != accountID || key.Scope != s.scope {
		return fmt.Errorf("delete key: %w", core.ErrNotFound)
	}

	if err := s.repo.Delete(ctx, keyID); err != nil {
		return err
	}

	s.changed(ctx, accountID)
	return nil
}

func (s *Service) ListForAccount(ctx context.Context, accountID string) ([]APIKey, error) {
	return s.repo.ListByAccount(ctx, s.scope, accountID)
}

// ResetForAccount deletes every key of the account.
func (s *Service) ResetForAccount(ctx context.Context, accountID string) (int64, error) {
	n, err := s.repo.DeleteByAccount(ctx, s.scope, accountID)
	if err != nil {
		return 0, err
	}

	s.changed(ctx, accountID)
	return n, nil
}

// ExtendKeys moves the end date of the account's keys issued under planName
// to end. Keys of other groups are left alone.
func (s *Service) ExtendKeys(
	ctx context.Context,
	accountID, planName string,
	end time.Time,
) error {
	if plan.IsFree(planName) {
		return nil
	}

	keys, err := s.repo.ListByAccount(ctx, s.scope, accountID)
	if err != nil {
		return err
	}

	var errs []error
	updated := 0
	for i := range keys {
		k := &keys[i]
		if k.APIGroup != planName || k.EndDate.Equal(end) {
			continue
		}
		k.EndDate = end.UTC()
		if err := s.repo.Replace(ctx, k); err != nil {
			errs = append(errs, err)
			continue
		}
		updated++
	}

	if updated > 0 {
		s.changed(ctx, accountID)
	}
	return errors.Join(errs...)
}

func (s *Service) changed(ctx context.Context, accountID string) {
	if s.local != nil {
		s.local.Invalidate()
	}
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, s.channel, accountID); err != nil {
		slog.Warn("publish key change", "error", err, "api_account_id", accountID)
	}
}
