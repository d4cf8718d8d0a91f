// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
)

// Account is the billing view of a user.
type Account struct {
	ID       string
	Plan     string
	Alias    string
	Payments map[string]Payment
	EndDate  time.Time
	Active   bool
}

// AccountStore persists the billing fields of an account. Every save
// replaces the whole user record; the last write wins.
type AccountStore interface {
	LoadAccount(ctx context.Context, accountID string) (*Account, error)
	SavePayments(ctx context.Context, accountID string, payments map[string]Payment) error
	SaveEndDate(ctx context.Context, accountID string, end time.Time, active bool) error
}

type PaymentScanner interface {
	Scan(ctx context.Context, planName, alias string, prior map[string]Payment) (map[string]Payment, error)
}

type EndDateCalculator interface {
	EndDate(ctx context.Context, planName string, payments []Payment) (time.Time, error)
}

// KeyExtender moves the end date of an account's paid keys along with the
// plan.
type KeyExtender interface {
	ExtendKeys(ctx context.Context, accountID, planName string, end time.Time) error
}

type Service struct {
	accounts AccountStore
	ledger   PaymentScanner
	calc     EndDateCalculator
	keys     KeyExtender
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithKeyExtender(k KeyExtender) ServiceOption {
	return func(s *Service) { s.keys = k }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(
	accounts AccountStore,
	ledger PaymentScanner,
	calc EndDateCalculator,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		accounts: accounts,
		ledger:   ledger,
		calc:     calc,
		tracer:   otel.Tracer("github.com/ccdexplorer/ccdexplorer-api/internal/billing"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh rescans the account's payments and recomputes its end date.
// When the end date cannot be computed the stored one is left as it was
// and the error wraps core.ErrUpstream or core.ErrInvalidDocument.
func (s *Service) Refresh(ctx context.Context, accountID string) (*Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "billing.Refresh",
		trace.WithAttributes(attribute.String("api_account_id", accountID)))
	defer span.End()

	sub, err := s.refresh(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
	}
	return sub, err
}

func (s *Service) refresh(ctx context.Context, accountID string) (*Subscription, error) {
	acc, err := s.accounts.LoadAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("refresh subscription: %w", err)
	}

	if acc.Plan == "" {
		sub := NewSubscription("", acc.EndDate, s.now())
		return &sub, nil
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("plan", acc.Plan))

	payments, err := s.ledger.Scan(ctx, acc.Plan, acc.Alias, acc.Payments)
	if err != nil {
		s.metrics.SubscriptionRefreshed(err)
		return nil, fmt.Errorf("refresh subscription %s: %w", accountID, err)
	}

	if err := s.accounts.SavePayments(ctx, accountID, payments); err != nil {
		s.metrics.SubscriptionRefreshed(err)
		return nil, fmt.Errorf("refresh subscription %s: %w", accountID, err)
	}

	end, err := s.calc.EndDate(ctx, acc.Plan, Sorted(payments))
	s.metrics.SubscriptionRefreshed(err)
	if err != nil {
		slog.Error("end date not computed, keeping previous",
			"api_account_id", accountID,
			"plan", acc.Plan,
			"previous_end_date", acc.EndDate,
			"error", err,
		)
		return nil, fmt.Errorf("refresh subscription %s: %w", accountID, err)
	}

	sub := NewSubscription(acc.Plan, end, s.now())
	if err := s.accounts.SaveEndDate(ctx, accountID, sub.EndDate, sub.Active); err != nil {
		return nil, fmt.Errorf("refresh subscription %s: %w", accountID, err)
	}

	if s.keys != nil {
		if err := s.keys.ExtendKeys(ctx, accountID, acc.Plan, sub.EndDate); err != nil {
			slog.Warn("extend api keys", "api_account_id", accountID, "error", err)
		}
	}

	slog.Debug("subscription refreshed",
		"api_account_id", accountID,
		"plan", acc.Plan,
		"payments", len(payments),
		"end_date", sub.EndDate,
		"active", sub.Active,
	)

	return &sub, nil
}

// SetOverride pins or clears (days == nil) the number of days a payment
// buys, then refreshes the account.
func (s *Service) SetOverride(
	ctx context.Context,
	accountID, txHash string,
	days *int,
) (*Subscription, error) {
	acc, err := s.accounts.LoadAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("set override: %w", err)
	}

	p, ok := acc.Payments[txHash]
	if !ok {
		return nil, fmt.Errorf("set override: payment %s: %w", txHash, core.ErrNotFound)
	}

	if days != nil {
		d := *days
		p.ManualOverride = &d
	} else {
		p.ManualOverride = nil
	}
	acc.Payments[txHash] = p

	if err := s.accounts.SavePayments(ctx, accountID, acc.Payments); err != nil {
		return nil, fmt.Errorf("set override: %w", err)
	}

	slog.Info("payment override set",
		"api_account_id", accountID,
		"tx_hash", txHash,
		"days", days,
	)

	return s.Refresh(ctx, accountID)
}
