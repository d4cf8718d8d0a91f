// AngelaMos | 2026
// repository.go

package explorer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

type Repository interface {
	Transaction(ctx context.Context, net, txHash string) (json.RawMessage, error)
	ExchangeRates(ctx context.Context) (map[string]ExchangeRate, error)
	BlocksPerDay(ctx context.Context, net string) (map[string]BlockPerDay, error)
}

type repository struct {
	docs *core.DocumentStore
}

func NewRepository(docs *core.DocumentStore) Repository {
	return &repository{docs: docs}
}

// Transaction returns the stored document after checking it has the shape
// of a classified transaction.
func (r *repository) Transaction(
	ctx context.Context,
	net, txHash string,
) (json.RawMessage, error) {
	coll := transactionsCollection(net)

	raw, err := r.docs.FindOneRaw(ctx, coll, txHash)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := r.docs.Decode(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", coll, txHash, err)
	}

	return json.RawMessage(raw), nil
}

// ExchangeRates is keyed by token symbol.
func (r *repository) ExchangeRates(ctx context.Context) (map[string]ExchangeRate, error) {
	rates, err := core.Find[ExchangeRate](ctx, r.docs, exchangeRatesCollection, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]ExchangeRate, len(rates))
	for _, rate := range rates {
		out[rate.Token] = rate
	}
	return out, nil
}

// BlocksPerDay is keyed by date (YYYY-MM-DD).
func (r *repository) BlocksPerDay(ctx context.Context, net string) (map[string]BlockPerDay, error) {
	days, err := core.Find[BlockPerDay](ctx, r.docs, blocksPerDayCollection(net), nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]BlockPerDay, len(days))
	for _, d := range days {
		out[d.Date] = d
	}
	return out, nil
}
