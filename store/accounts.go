package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/playgate/gatekeeper"
)

// AccountRepository implements gatekeeper.AccountProvider on PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a repository over pool.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetAccountByEmail looks up an account by email, case-insensitively.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (gatekeeper.Account, error) {
	var (
		a         gatekeeper.Account
		lastLogin *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, username, password_hash, banned, last_login_at
		 FROM accounts WHERE lower(email) = lower($1)`,
		email).Scan(&a.UserID, &a.Email, &a.Username, &a.PasswordHash, &a.Banned, &lastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return gatekeeper.Account{}, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(gatekeeper.ErrAccountNotFound)
	}
	if err != nil {
		return gatekeeper.Account{}, oops.Code("ACCOUNT_QUERY_FAILED").With("email", email).Wrap(err)
	}
	if lastLogin != nil {
		a.LastLoginAt = lastLogin.UTC()
	}
	return a, nil
}

// SaveAccount persists the login mutation: password hash and last login
// time. Ban state and profile fields are owned elsewhere and left untouched.
func (r *AccountRepository) SaveAccount(ctx context.Context, a gatekeeper.Account) error {
	var lastLogin *time.Time
	if !a.LastLoginAt.IsZero() {
		t := a.LastLoginAt.UTC()
		lastLogin = &t
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, last_login_at = $3 WHERE user_id = $1`,
		a.UserID, a.PasswordHash, lastLogin)
	if err != nil {
		return oops.Code("ACCOUNT_SAVE_FAILED").With("user_id", a.UserID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("user_id", a.UserID).Wrap(gatekeeper.ErrAccountNotFound)
	}
	return nil
}
