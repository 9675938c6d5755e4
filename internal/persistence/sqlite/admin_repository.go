package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// AdminRepository implements persistence.AdminRepository using SQLite.
type AdminRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAdminRepository creates a new SQLite admin account repository.
func NewAdminRepository(pool *ConnectionPool) *AdminRepository {
	return &AdminRepository{pool: pool, mapper: NewErrorMapper()}
}

// GetAdminAccount retrieves the account for username.
func (r *AdminRepository) GetAdminAccount(ctx context.Context, username string) (persistence.AdminAccount, error) {
	var account persistence.AdminAccount
	err := r.pool.DB().GetContext(ctx, &account,
		`SELECT username, password_hash, created_at, updated_at FROM admin_accounts WHERE username = ?`, username)
	if err != nil {
		return persistence.AdminAccount{}, r.mapper.MapError(err)
	}
	return account, nil
}

// CreateAdminAccountIfMissing inserts account unless the username is taken.
func (r *AdminRepository) CreateAdminAccountIfMissing(ctx context.Context, account persistence.AdminAccount) (bool, error) {
	if account.Username == "" || account.PasswordHash == "" {
		return false, persistence.ErrConstraintViolation
	}
	now := time.Now().UTC().Format(timestampLayout)
	account.CreatedAt = now
	account.UpdatedAt = now

	result, err := r.pool.DB().NamedExecContext(ctx, `
		INSERT INTO admin_accounts (username, password_hash, created_at, updated_at)
		VALUES (:username, :password_hash, :created_at, :updated_at)
		ON CONFLICT(username) DO NOTHING`, account)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateAdminPasswordHash replaces the stored hash for username.
func (r *AdminRepository) UpdateAdminPasswordHash(ctx context.Context, username, hash string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE admin_accounts SET password_hash = ?, updated_at = ? WHERE username = ?`,
		hash, time.Now().UTC().Format(timestampLayout), username)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
