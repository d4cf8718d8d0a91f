// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/apikey"
	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

var (
	ErrUnknownPlan = errors.New("unknown plan")
	ErrNoPlan      = errors.New("account has no plan")
)

const freePlanTerm = 365 * 24 * time.Hour

type KeyManager interface {
	NewKey(ctx context.Context, accountID, planName string, planEnd time.Time) (*apikey.APIKey, error)
	DeleteKey(ctx context.Context, accountID, keyID string) error
	ListForAccount(ctx context.Context, accountID string) ([]apikey.APIKey, error)
	ResetForAccount(ctx context.Context, accountID string) (int64, error)
}

// QuotaUsage reads and clears the per-window request counters.
type QuotaUsage interface {
	Usage(ctx context.Context, account string, window plan.Window) (int64, time.Duration, error)
	Reset(ctx context.Context, account string, window plan.Window) error
}

type SubscriptionRefresher interface {
	Refresh(ctx context.Context, accountID string) (*billing.Subscription, error)
}

type Service struct {
	repo  Repository
	keys  KeyManager
	usage QuotaUsage
	subs  SubscriptionRefresher
	net   string
	now   func() time.Time
}

func NewService(
	repo Repository,
	keys KeyManager,
	usage QuotaUsage,
	subs SubscriptionRefresher,
	net string,
) *Service {
	return &Service{
		repo:  repo,
		keys:  keys,
		usage: usage,
		subs:  subs,
		net:   net,
		now:   time.Now,
	}
}

// WithNow replaces the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Get(ctx context.Context, accountID string) (*User, error) {
	return s.repo.GetByID(ctx, accountID)
}

// SetPlan switches the account to planName, "free" when empty. A free plan
// runs for a year; a paid plan starts expired until a payment is found.
func (s *Service) SetPlan(ctx context.Context, accountID, planName string) (*User, error) {
	if planName == "" {
		planName = plan.Free
	}
	p, ok := plan.Lookup(planName)
	if !ok {
		return nil, fmt.Errorf("set plan %q: %w", planName, ErrUnknownPlan)
	}

	u, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u.Plan = p.Name
	u.PlanEndDate = now
	if p.Name == plan.Free {
		u.PlanEndDate = now.Add(freePlanTerm)
	}

	if err := s.repo.Replace(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("plan set", "api_account_id", accountID, "plan", p.Name)
	return u, nil
}

// ResetPlan clears the plan, the day counter and every key of the account.
func (s *Service) ResetPlan(ctx context.Context, accountID string) error {
	u, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	u.Plan = ""
	u.PlanEndDate = s.now().UTC()
	if err := s.repo.Replace(ctx, u); err != nil {
		return err
	}

	if err := s.usage.Reset(ctx, accountID, plan.WindowDay); err != nil {
		slog.Warn("reset day counter", "api_account_id", accountID, "error", err)
	}

	n, err := s.keys.ResetForAccount(ctx, accountID)
	if err != nil {
		return err
	}

	slog.Info("plan reset", "api_account_id", accountID, "keys_deleted", n)
	return nil
}

func (s *Service) NewKey(ctx context.Context, accountID string) (*apikey.APIKey, error) {
	u, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if u.Plan == "" {
		return nil, fmt.Errorf("new key: %w", ErrNoPlan)
	}
	return s.keys.NewKey(ctx, accountID, u.Plan, u.PlanEndDate)
}

func (s *Service) DeleteKey(ctx context.Context, accountID, keyID string) error {
	return s.keys.DeleteKey(ctx, accountID, keyID)
}

func (s *Service) Keys(ctx context.Context, accountID string) ([]apikey.Summary, error) {
	keys, err := s.keys.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]apikey.Summary, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Summary())
	}
	return out, nil
}

func (s *Service) Refresh(ctx context.Context, accountID string) (*billing.Subscription, error) {
	return s.subs.Refresh(ctx, accountID)
}

// Account refreshes the subscription and summarizes the account. A failed
// refresh is logged and the stored state is returned marked stale.
func (s *Service) Account(ctx context.Context, accountID string) (*AccountSummary, error) {
	stale := false
	if _, err := s.subs.Refresh(ctx, accountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		slog.Warn("account refresh failed, showing stored state",
			"api_account_id", accountID,
			"error", err,
		)
		stale = true
	}

	u, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	keys, err := s.Keys(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	summary := &AccountSummary{
		APIAccountID:   u.ID,
		Email:          u.Email,
		Plan:           u.Plan,
		PlanEndDate:    u.PlanEndDate,
		Active:         u.PlanEndDate.After(now),
		AliasAccountID: u.AliasAccountID,
		Payments:       billing.Sorted(u.Payments),
		Keys:           keys,
		SampleKey:      sampleKey,
		Net:            s.net,
		Stale:          stale,
	}
	if len(keys) > 0 {
		summary.SampleKey = keys[0].Key
	}

	summary.DailyLimit, summary.MinuteLimit, summary.DailyFee = planLimits(u.Plan)
	if summary.DailyLimit != nil {
		summary.Day = s.windowUsage(ctx, accountID, plan.WindowDay, *summary.DailyLimit, now)
	}
	if summary.MinuteLimit != nil {
		summary.Minute = s.windowUsage(ctx, accountID, plan.WindowMinute, *summary.MinuteLimit, now)
	}

	return summary, nil
}

func (s *Service) windowUsage(
	ctx context.Context,
	accountID string,
	window plan.Window,
	limit int64,
	now time.Time,
) *WindowUsage {
	used, ttl, err := s.usage.Usage(ctx, accountID, window)
	if err != nil {
		slog.Warn("read quota usage", "api_account_id", accountID, "window", window, "error", err)
		return nil
	}

	return &WindowUsage{
		Limit:     limit,
		Remaining: max(limit-used, 0),
		ResetsIn:  int64(ttl / time.Second),
		ResetsAt:  now.Add(ttl),
	}
}

func (s *Service) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountByPlan(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByPlan(ctx)
}
