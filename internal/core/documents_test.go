// AngelaMos | 2026
// documents_test.go

package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/migrations"
)

type record struct {
	ID    string `json:"_id"   validate:"required"`
	Owner string `json:"owner" validate:"required"`
	Count int    `json:"count" validate:"min=0"`
}

func newStore(t *testing.T) *core.DocumentStore {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(db.DB))

	_, err = db.Exec(`DELETE FROM documents WHERE collection LIKE 'test.%'`)
	require.NoError(t, err)

	return core.NewDocumentStore(db)
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	coll := core.Collection("test", "records")

	require.NoError(t, s.InsertOne(ctx, coll, "a", record{ID: "a", Owner: "alice", Count: 1}))
	require.NoError(t, s.InsertOne(ctx, coll, "b", record{ID: "b", Owner: "bob", Count: 2}))

	err := s.InsertOne(ctx, coll, "a", record{ID: "a", Owner: "mallory"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	got, err := core.FindOne[record](ctx, s, coll, "a")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)

	require.NoError(t, s.ReplaceOne(ctx, coll, "a", record{ID: "a", Owner: "alice", Count: 5}))
	got, err = core.FindOne[record](ctx, s, coll, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Count)

	owned, err := core.Find[record](ctx, s, coll, map[string]string{"owner": "bob"})
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "b", owned[0].ID)

	all, err := core.Find[record](ctx, s, coll, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteOne(ctx, coll, "a"))
	assert.ErrorIs(t, s.DeleteOne(ctx, coll, "a"), core.ErrNotFound)

	_, err = core.FindOne[record](ctx, s, coll, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)

	n, err := s.DeleteMany(ctx, coll, map[string]string{"owner": "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDocumentValidationOnRead(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	coll := core.Collection("test", "records")

	require.NoError(t, s.ReplaceOne(ctx, coll, "bad", map[string]any{"_id": "bad", "count": 1}))
	_, err := core.FindOne[record](ctx, s, coll, "bad")
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	require.NoError(t, s.ReplaceOne(ctx, coll, "typed", map[string]any{"_id": "typed", "owner": "x", "count": "many"}))
	_, err = core.FindOne[record](ctx, s, coll, "typed")
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestDecodeIgnoresExtraFields(t *testing.T) {
	s := core.NewDocumentStore(nil)

	var r record
	require.NoError(t, s.Decode([]byte(`{"_id":"a","owner":"o","count":1,"extra":{"x":1}}`), &r))
	assert.Equal(t, "o", r.Owner)

	var missing record
	assert.ErrorIs(t, s.Decode([]byte(`{"_id":"a"}`), &missing), core.ErrInvalidDocument)

	var garbled record
	assert.ErrorIs(t, s.Decode([]byte(`not json`), &garbled), core.ErrInvalidDocument)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "utilities.api_users", core.Collection(core.DBUtilities, "api_users"))
}
