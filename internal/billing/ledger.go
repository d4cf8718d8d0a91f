// AngelaMos | 2026
// ledger.go

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

var ErrUnknownPlan = errors.New("unknown plan")

// TokenTag describes the settlement token as the explorer indexes it.
type TokenTag struct {
	ID        string   `json:"_id"       validate:"required"`
	Contracts []string `json:"contracts" validate:"min=1,dive,required"`
	Decimals  int      `json:"decimals"  validate:"gte=0,lte=36"`
}

// Address is the token address the event log uses for the tag's first
// contract (contract plus an empty token id).
func (t TokenTag) Address() string {
	return t.Contracts[0] + "-"
}

// TokenAmount is a raw on-chain integer amount. The indexer stores it as a
// decimal string; plain JSON numbers are accepted too.
type TokenAmount struct {
	big.Rat
}

func (a *TokenAmount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if raw == "" || raw == "null" {
		a.SetInt64(0)
		return nil
	}
	if _, ok := a.SetString(raw); !ok {
		return fmt.Errorf("token amount %q is not a number", raw)
	}
	return nil
}

var _ json.Unmarshaler = (*TokenAmount)(nil)

type TransferResult struct {
	ToAddress   string      `json:"to_address"`
	TokenAmount TokenAmount `json:"token_amount"`
}

// TransferEvent is a logged CIS-2 transfer event.
type TransferEvent struct {
	TxHash       string         `json:"tx_hash"       validate:"required"`
	Date         string         `json:"date"          validate:"required"`
	TokenAddress string         `json:"token_address" validate:"required"`
	Result       TransferResult `json:"result"`
}

// Scaled converts the raw amount into whole token units.
func (e TransferEvent) Scaled(decimals int) float64 {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r := new(big.Rat).Quo(&e.Result.TokenAmount.Rat, new(big.Rat).SetInt(scale))
	f, _ := r.Float64()
	return f
}

type LedgerSource interface {
	TokenTag(ctx context.Context, tagID string) (*TokenTag, error)
	TransfersTo(ctx context.Context, tokenAddress, alias string) ([]TransferEvent, error)
}

// Ledger turns the settlement token's transfer log into Payments.
type Ledger struct {
	source LedgerSource
	token  string
}

func NewLedger(source LedgerSource, settlementToken string) *Ledger {
	return &Ledger{source: source, token: settlementToken}
}

// Scan returns every payment made to alias, keyed by transaction hash.
// Computed fields are rebuilt from the log each time; a manual override
// already present in prior for the same hash is kept.
func (l *Ledger) Scan(
	ctx context.Context,
	planName, alias string,
	prior map[string]Payment,
) (map[string]Payment, error) {
	p, ok := plan.Lookup(planName)
	if !ok {
		return nil, fmt.Errorf("scan ledger: %w: %q", ErrUnknownPlan, planName)
	}

	tag, err := l.source.TokenTag(ctx, l.token)
	if err != nil {
		return nil, fmt.Errorf("load token tag %s: %w", l.token, err)
	}

	events, err := l.source.TransfersTo(ctx, tag.Address(), alias)
	if err != nil {
		return nil, fmt.Errorf("load transfers to %s: %w", alias, err)
	}

	return BuildPayments(*tag, p, alias, events, prior), nil
}

// BuildPayments is the pure part of Scan. Events for another token or
// another recipient are ignored.
func BuildPayments(
	tag TokenTag,
	p plan.Plan,
	alias string,
	events []TransferEvent,
	prior map[string]Payment,
) map[string]Payment {
	address := tag.Address()
	out := make(map[string]Payment, len(events))

	for _, ev := range events {
		if ev.TokenAddress != address || ev.Result.ToAddress != alias {
			continue
		}

		amount := ev.Scaled(tag.Decimals)
		var days float64
		if amount > 0 {
			days = amount / p.PricePerDay
		}

		payment := Payment{
			TxHash:   ev.TxHash,
			TxDate:   ev.Date,
			Amount:   amount,
			PaidDays: days,
		}
		if old, ok := prior[ev.TxHash]; ok && old.ManualOverride != nil {
			override := *old.ManualOverride
			payment.ManualOverride = &override
		}

		out[ev.TxHash] = payment
	}

	return out
}

// StoreLedger reads tags and transfer events from the explorer collections
// of one net.
type StoreLedger struct {
	docs *core.DocumentStore
	net  string
}

func NewStoreLedger(docs *core.DocumentStore, net string) *StoreLedger {
	return &StoreLedger{docs: docs, net: net}
}

func (s *StoreLedger) TokenTag(ctx context.Context, tagID string) (*TokenTag, error) {
	return core.FindOne[TokenTag](ctx, s.docs, core.Collection(s.net, "tokens_tags"), tagID)
}

func (s *StoreLedger) TransfersTo(
	ctx context.Context,
	tokenAddress, alias string,
) ([]TransferEvent, error) {
	filter := map[string]any{
		"token_address": tokenAddress,
		"result":        map[string]any{"to_address": alias},
	}
	return core.Find[TransferEvent](
		ctx, s.docs, core.Collection(s.net, "tokens_logged_events"), filter,
	)
}
