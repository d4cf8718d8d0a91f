// AngelaMos | 2026
// documents.go

package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
)

// Databases a collection can live in. The explorer data is split per net,
// account data lives in utilities.
const (
	DBUtilities = "utilities"
	DBMainnet   = "mainnet"
	DBTestnet   = "testnet"
)

func Collection(db, name string) string {
	return db + "." + name
}

// DocumentStore keeps JSON documents in named collections on top of a single
// postgres table. Every document is replaced wholesale; there are no partial
// updates.
type DocumentStore struct {
	db       DBTX
	validate *validator.Validate
}

func NewDocumentStore(db DBTX) *DocumentStore {
	return &DocumentStore{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *DocumentStore) FindOneRaw(
	ctx context.Context,
	collection, id string,
) ([]byte, error) {
	query := `
		SELECT body::text
		FROM documents
		WHERE collection = $1 AND id = $2`

	var body string
	err := s.db.GetContext(ctx, &body, query, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}

	return []byte(body), nil
}

// FindRaw returns every document of the collection that contains filter
// (jsonb @> semantics). A nil filter matches the whole collection.
func (s *DocumentStore) FindRaw(
	ctx context.Context,
	collection string,
	filter any,
) ([][]byte, error) {
	filterJSON := []byte("{}")
	if filter != nil {
		b, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		filterJSON = b
	}

	query := `
		SELECT body::text
		FROM documents
		WHERE collection = $1 AND body @> $2::jsonb
		ORDER BY id`

	var bodies []string
	if err := s.db.SelectContext(ctx, &bodies, query, collection, string(filterJSON)); err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	out := make([][]byte, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, []byte(b))
	}
	return out, nil
}

func (s *DocumentStore) ReplaceOne(
	ctx context.Context,
	collection, id string,
	doc any,
) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	query := `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(body)); err != nil {
		if IsDuplicateKeyError(err) {
			return fmt.Errorf("replace %s/%s: %w", collection, id, ErrDuplicateKey)
		}
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}

	return nil
}

func (s *DocumentStore) InsertOne(
	ctx context.Context,
	collection, id string,
	doc any,
) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	query := `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())`

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(body)); err != nil {
		if IsDuplicateKeyError(err) {
			return fmt.Errorf("insert %s/%s: %w", collection, id, ErrDuplicateKey)
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}

	return nil
}

func (s *DocumentStore) DeleteOne(
	ctx context.Context,
	collection, id string,
) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	result, err := s.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	if rows == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}

	return nil
}

func (s *DocumentStore) DeleteMany(
	ctx context.Context,
	collection string,
	filter any,
) (int64, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return 0, fmt.Errorf("encode filter: %w", err)
	}

	query := `DELETE FROM documents WHERE collection = $1 AND body @> $2::jsonb`

	result, err := s.db.ExecContext(ctx, query, collection, string(filterJSON))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}

	return rows, nil
}

// Decode maps a raw document onto its typed record and validates it, so a
// document with the wrong shape is rejected here instead of surfacing as
// zero values deeper in.
func (s *DocumentStore) Decode(raw []byte, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if err := s.validate.Struct(dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return nil
}

func FindOne[T any](
	ctx context.Context,
	s *DocumentStore,
	collection, id string,
) (*T, error) {
	raw, err := s.FindOneRaw(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	var doc T
	if err := s.Decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}

	return &doc, nil
}

func Find[T any](
	ctx context.Context,
	s *DocumentStore,
	collection string,
	filter any,
) ([]T, error) {
	raws, err := s.FindRaw(ctx, collection, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := s.Decode(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
