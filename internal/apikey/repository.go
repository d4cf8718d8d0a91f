// AngelaMos | 2026
// repository.go

package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

var collection = core.Collection(core.DBUtilities, "api_api_keys")

type Repository interface {
	ListByAccount(ctx context.Context, scope, accountID string) ([]APIKey, error)
	ListActive(ctx context.Context, scope string, now time.Time) ([]APIKey, error)
	Get(ctx context.Context, id string) (*APIKey, error)
	Create(ctx context.Context, key *APIKey) error
	Replace(ctx context.Context, key *APIKey) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, scope, accountID string) (int64, error)
}

type repository struct {
	docs *core.DocumentStore
}

func NewRepository(docs *core.DocumentStore) Repository {
	return &repository{docs: docs}
}

type accountFilter struct {
	Scope        string `json:"scope"`
	APIAccountID string `json:"api_account_id"`
}

func (r *repository) ListByAccount(
	ctx context.Context,
	scope, accountID string,
) ([]APIKey, error) {
	keys, err := core.Find[APIKey](ctx, r.docs, collection, accountFilter{
		Scope:        scope,
		APIAccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("list keys for %s: %w", accountID, err)
	}
	return keys, nil
}

// ListActive returns the keys of scope whose end date is not before now.
// The date comparison runs here because jsonb containment cannot express it.
func (r *repository) ListActive(
	ctx context.Context,
	scope string,
	now time.Time,
) ([]APIKey, error) {
	keys, err := core.Find[APIKey](ctx, r.docs, collection, map[string]string{"scope": scope})
	if err != nil {
		return nil, fmt.Errorf("list active keys: %w", err)
	}

	active := keys[:0]
	for _, k := range keys {
		if k.ActiveAt(now) {
			active = append(active, k)
		}
	}
	return active, nil
}

func (r *repository) Get(ctx context.Context, id string) (*APIKey, error) {
	key, err := core.FindOne[APIKey](ctx, r.docs, collection, id)
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return key, nil
}

func (r *repository) Create(ctx context.Context, key *APIKey) error {
	if err := r.docs.InsertOne(ctx, collection, key.ID, key); err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

func (r *repository) Replace(ctx context.Context, key *APIKey) error {
	if err := r.docs.ReplaceOne(ctx, collection, key.ID, key); err != nil {
		return fmt.Errorf("replace key: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if err := r.docs.DeleteOne(ctx, collection, id); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

func (r *repository) DeleteByAccount(
	ctx context.Context,
	scope, accountID string,
) (int64, error) {
	n, err := r.docs.DeleteMany(ctx, collection, accountFilter{
		Scope:        scope,
		APIAccountID: accountID,
	})
	if err != nil {
		return 0, fmt.Errorf("delete keys for %s: %w", accountID, err)
	}
	return n, nil
}
