package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cryptowallet/wallet-service/internal/models"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Repository provides database operations over wallet accounts
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateAccount persists a new account. The unique index on email is the
// authoritative guard against duplicate registrations; a violation is
// reported as models.ErrAccountExists.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, account.ID, account.Email, account.Balance).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return models.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindAccountByID retrieves an account by its identifier
func (r *Repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, email, balance, version, created_at, updated_at
		FROM accounts
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.Email, &account.Balance, &account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// ExistsByEmail reports whether any account has the given email
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdateBalance conditionally overwrites an account balance. The write only
// lands if the stored version still matches the one the caller read, which
// closes the lost-update race between concurrent deposits/withdrawals.
// Returns models.ErrVersionConflict if the row moved underneath the caller.
func (r *Repository) UpdateBalance(ctx context.Context, id uuid.UUID, balance, version int64) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND version = $3`
	res, err := r.db.ExecContext(ctx, query, balance, id, version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrVersionConflict
	}
	return nil
}

// Stats returns the account count and the aggregate balance in minor units
func (r *Repository) Stats(ctx context.Context) (accounts int64, totalBalance int64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(balance), 0) FROM accounts`
	if err := r.db.QueryRowContext(ctx, query).Scan(&accounts, &totalBalance); err != nil {
		return 0, 0, fmt.Errorf("failed to collect stats: %w", err)
	}
	return accounts, totalBalance, nil
}
