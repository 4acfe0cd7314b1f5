package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/repository"
)

var accountColumns = []string{
	"sub",
	"username",
	"email",
	"email_confirmed",
	"password_hash",
	"ext",
	"scopes",
	"active",
	"times",
	"profile",
	"confirmation_token",
	"confirmation_cookie",
	"reset_token",
	"reset_cookie",
	"created_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
// External identities, scopes, per-method login times, and the profile live
// in jsonb columns on the account row.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	ext, err := marshalJSONB(account.Ext, "{}")
	if err != nil {
		return fmt.Errorf("marshal ext: %w", err)
	}
	scopes, err := marshalJSONB(account.Scopes, "{}")
	if err != nil {
		return fmt.Errorf("marshal scopes: %w", err)
	}
	times, err := marshalJSONB(account.Times, "{}")
	if err != nil {
		return fmt.Errorf("marshal times: %w", err)
	}
	profile, err := json.Marshal(account.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := r.builder.Insert("auth.accounts").
		Columns(accountColumns...).
		Values(
			account.Sub,
			account.Username,
			account.Email,
			account.EmailConfirmed,
			account.PasswordHash,
			ext,
			scopes,
			account.Active,
			times,
			profile,
			account.ConfirmationToken,
			account.ConfirmationCookie,
			account.ResetToken,
			account.ResetCookie,
			createdAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", mapError(err))
	}

	return nil
}

// GetBySub retrieves an account by its identifier.
func (r *AccountRepository) GetBySub(ctx context.Context, sub int64) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"sub": sub})
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, identifier string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": identifier})
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByExternalID resolves the account holding the (provider, id) binding.
func (r *AccountRepository) GetByExternalID(ctx context.Context, provider, id string) (*domain.Account, error) {
	member, err := json.Marshal([]string{id})
	if err != nil {
		return nil, fmt.Errorf("marshal external id: %w", err)
	}
	return r.getOne(ctx, squirrel.Expr("ext -> ? @> ?::jsonb", provider, member))
}

// GetByConfirmationToken retrieves the account holding an outstanding email
// confirmation token.
func (r *AccountRepository) GetByConfirmationToken(ctx context.Context, token string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.And{
		squirrel.Eq{"confirmation_token": token},
		squirrel.NotEq{"confirmation_token": ""},
	})
}

// GetByResetToken retrieves the account holding an outstanding password reset
// token.
func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.And{
		squirrel.Eq{"reset_token": token},
		squirrel.NotEq{"reset_token": ""},
	})
}

func (r *AccountRepository) getOne(ctx context.Context, pred any) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// AppendExternalID binds an identifier under the provider, preserving
// first-seen order. Already-present identifiers are left untouched.
func (r *AccountRepository) AppendExternalID(ctx context.Context, sub int64, provider, id string) error {
	stmt := `
		UPDATE auth.accounts
		   SET ext = jsonb_set(ext, ARRAY[$2],
				CASE WHEN COALESCE(ext -> $2, '[]'::jsonb) @> to_jsonb($3::text)
					 THEN ext -> $2
					 ELSE COALESCE(ext -> $2, '[]'::jsonb) || to_jsonb($3::text)
				END, true)
		 WHERE sub = $1
	`

	ct, err := r.exec.Exec(ctx, stmt, sub, provider, id)
	if err != nil {
		return fmt.Errorf("append external id: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RemoveExternalID unbinds an identifier. The provider key is dropped when
// its list becomes empty.
func (r *AccountRepository) RemoveExternalID(ctx context.Context, sub int64, provider, id string) error {
	stmt := `
		UPDATE auth.accounts
		   SET ext = CASE WHEN (ext -> $2) - $3 = '[]'::jsonb
						  THEN ext - $2
						  ELSE jsonb_set(ext, ARRAY[$2], (ext -> $2) - $3)
					 END
		 WHERE sub = $1
		   AND COALESCE(ext -> $2, '[]'::jsonb) @> to_jsonb($3::text)
	`

	ct, err := r.exec.Exec(ctx, stmt, sub, provider, id)
	if err != nil {
		return fmt.Errorf("remove external id: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// TouchLogin records a login timestamp under the method key.
func (r *AccountRepository) TouchLogin(ctx context.Context, sub int64, method string, at time.Time) error {
	stmt := `
		UPDATE auth.accounts
		   SET times = jsonb_set(COALESCE(times, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text), true)
		 WHERE sub = $1
	`

	ct, err := r.exec.Exec(ctx, stmt, sub, method, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, sub int64, passwordHash string) error {
	return r.updateFields(ctx, sub, "update password", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("password_hash", passwordHash)
	})
}

// UpdateProfile replaces the profile document.
func (r *AccountRepository) UpdateProfile(ctx context.Context, sub int64, profile domain.Profile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return r.updateFields(ctx, sub, "update profile", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("profile", doc)
	})
}

// UpdateScopes replaces the scopes document.
func (r *AccountRepository) UpdateScopes(ctx context.Context, sub int64, scopes map[string][]string) error {
	doc, err := marshalJSONB(scopes, "{}")
	if err != nil {
		return fmt.Errorf("marshal scopes: %w", err)
	}
	return r.updateFields(ctx, sub, "update scopes", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("scopes", doc)
	})
}

// SetActive flips the active flag.
func (r *AccountRepository) SetActive(ctx context.Context, sub int64, active bool) error {
	return r.updateFields(ctx, sub, "set active", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("active", active)
	})
}

// SetEmailConfirmed flips the email confirmation flag.
func (r *AccountRepository) SetEmailConfirmed(ctx context.Context, sub int64, confirmed bool) error {
	return r.updateFields(ctx, sub, "set email confirmed", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("email_confirmed", confirmed)
	})
}

// SetConfirmationSecret stores a fresh confirmation token/cookie pair,
// replacing any outstanding one.
func (r *AccountRepository) SetConfirmationSecret(ctx context.Context, sub int64, token, cookie string) error {
	return r.updateFields(ctx, sub, "set confirmation secret", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("confirmation_token", token).Set("confirmation_cookie", cookie)
	})
}

// ClearConfirmationSecret invalidates the outstanding confirmation pair.
func (r *AccountRepository) ClearConfirmationSecret(ctx context.Context, sub int64) error {
	return r.updateFields(ctx, sub, "clear confirmation secret", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("confirmation_token", "").Set("confirmation_cookie", "")
	})
}

// SetResetSecret stores a fresh reset token/cookie pair, replacing any
// outstanding one.
func (r *AccountRepository) SetResetSecret(ctx context.Context, sub int64, token, cookie string) error {
	return r.updateFields(ctx, sub, "set reset secret", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("reset_token", token).Set("reset_cookie", cookie)
	})
}

// ClearResetSecret invalidates the outstanding reset pair.
func (r *AccountRepository) ClearResetSecret(ctx context.Context, sub int64) error {
	return r.updateFields(ctx, sub, "clear reset secret", func(q squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return q.Set("reset_token", "").Set("reset_cookie", "")
	})
}

func (r *AccountRepository) updateFields(ctx context.Context, sub int64, op string, set func(squirrel.UpdateBuilder) squirrel.UpdateBuilder) error {
	stmt, args, err := set(r.builder.Update("auth.accounts")).
		Where(squirrel.Eq{"sub": sub}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an account row.
func (r *AccountRepository) Delete(ctx context.Context, sub int64) error {
	stmt, args, err := r.builder.Delete("auth.accounts").
		Where(squirrel.Eq{"sub": sub}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns accounts with optional filtering and pagination.
func (r *AccountRepository) List(ctx context.Context, filter port.AccountFilter) ([]domain.Account, error) {
	query := r.builder.Select(accountColumns...).
		From("auth.accounts").
		OrderBy("sub ASC")

	if filter.Active != nil {
		query = query.Where(squirrel.Eq{"active": *filter.Active})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		ext     []byte
		scopes  []byte
		times   []byte
		profile []byte
	)

	if err := row.Scan(
		&account.Sub,
		&account.Username,
		&account.Email,
		&account.EmailConfirmed,
		&account.PasswordHash,
		&ext,
		&scopes,
		&account.Active,
		&times,
		&profile,
		&account.ConfirmationToken,
		&account.ConfirmationCookie,
		&account.ResetToken,
		&account.ResetCookie,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := unmarshalJSONB(ext, &account.Ext); err != nil {
		return nil, fmt.Errorf("unmarshal ext: %w", err)
	}
	if err := unmarshalJSONB(scopes, &account.Scopes); err != nil {
		return nil, fmt.Errorf("unmarshal scopes: %w", err)
	}
	if err := unmarshalJSONB(times, &account.Times); err != nil {
		return nil, fmt.Errorf("unmarshal times: %w", err)
	}
	if err := unmarshalJSONB(profile, &account.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	if account.Ext == nil {
		account.Ext = domain.ExternalIdentities{}
	}
	if account.Scopes == nil {
		account.Scopes = map[string][]string{}
	}
	if account.Times == nil {
		account.Times = map[string]time.Time{}
	}

	return &account, nil
}

func marshalJSONB(v any, empty string) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(doc) == "null" {
		return []byte(empty), nil
	}
	return doc, nil
}

func unmarshalJSONB(doc []byte, v any) error {
	if len(doc) == 0 {
		return nil
	}
	return json.Unmarshal(doc, v)
}

var _ port.AccountRepository = (*AccountRepository)(nil)
