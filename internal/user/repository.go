// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

var (
	usersCollection   = core.Collection(core.DBUtilities, "api_users")
	aliasesCollection = core.Collection(core.DBUtilities, "api_aliases")
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*User, error)
	Create(ctx context.Context, user *User) error
	Replace(ctx context.Context, user *User) error
	NextAliasID(ctx context.Context) (int, error)
	AliasFor(ctx context.Context, net string, aliasID int) (*Alias, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	CountByPlan(ctx context.Context) (map[string]int, error)
}

type repository struct {
	db   core.DBTX
	docs *core.DocumentStore
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db, docs: core.NewDocumentStore(db)}
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	user, err := core.FindOne[User](ctx, r.docs, usersCollection, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *repository) findFirst(ctx context.Context, filter map[string]string) (*User, error) {
	users, err := core.Find[User](ctx, r.docs, usersCollection, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, core.ErrNotFound
	}
	return &users[0], nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, err := r.findFirst(ctx, map[string]string{"email": email})
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *repository) GetByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("get user by reset token: %w", core.ErrNotFound)
	}
	user, err := r.findFirst(ctx, map[string]string{"reset_password_token": tokenHash})
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}
	return user, nil
}

// Create fails with core.ErrDuplicateKey when the email or alias is taken.
func (r *repository) Create(ctx context.Context, user *User) error {
	if err := r.docs.InsertOne(ctx, usersCollection, user.ID, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) Replace(ctx context.Context, user *User) error {
	if err := r.docs.ReplaceOne(ctx, usersCollection, user.ID, user); err != nil {
		return fmt.Errorf("replace user: %w", err)
	}
	return nil
}

// NextAliasID is one past the highest alias id in use, starting at 0.
func (r *repository) NextAliasID(ctx context.Context) (int, error) {
	query := `
		SELECT COALESCE(MAX((body->>'alias_id')::int), -1)
		FROM documents
		WHERE collection = $1`

	var maxID int
	if err := r.db.GetContext(ctx, &maxID, query, usersCollection); err != nil {
		return 0, fmt.Errorf("next alias id: %w", err)
	}

	return maxID + 1, nil
}

func (r *repository) AliasFor(ctx context.Context, net string, aliasID int) (*Alias, error) {
	aliases, err := core.Find[Alias](ctx, r.docs, aliasesCollection, struct {
		Net     string `json:"net"`
		AliasID int    `json:"alias_id"`
	}{net, aliasID})
	if err != nil {
		return nil, fmt.Errorf("alias %d on %s: %w", aliasID, net, err)
	}
	if len(aliases) == 0 {
		return nil, fmt.Errorf("alias %d on %s: %w", aliasID, net, core.ErrNotFound)
	}
	return &aliases[0], nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"collection = $1"}
	args := []any{usersCollection}
	argIdx := 2

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(body->>'email' ILIKE $%d OR body->>'alias_account_id' ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Plan != "" {
		conditions = append(conditions, fmt.Sprintf("body->>'plan' = $%d", argIdx))
		args = append(args, params.Plan)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM documents WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT body::text
		FROM documents
		WHERE %s
		ORDER BY (body->>'alias_id')::int
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var bodies []string
	if err := r.db.SelectContext(ctx, &bodies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(bodies))
	for _, b := range bodies {
		var u User
		if err := r.docs.Decode([]byte(b), &u); err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}

	return users, total, nil
}

type planCount struct {
	Plan  string `db:"plan"`
	Count int    `db:"count"`
}

// CountByPlan counts accounts per plan; accounts without a plan count
// under "".
func (r *repository) CountByPlan(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT COALESCE(body->>'plan', '') AS plan, COUNT(*) AS count
		FROM documents
		WHERE collection = $1
		GROUP BY 1`

	var rows []planCount
	if err := r.db.SelectContext(ctx, &rows, query, usersCollection); err != nil {
		return nil, fmt.Errorf("count users by plan: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Plan] = row.Count
	}
	return out, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
