package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email address is already in use")
)

// Account is the credential record behind a user profile. ID doubles as the
// users document ID.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountStore persists accounts in PostgreSQL.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// InitSchema creates the accounts table if it does not exist.
func (s *AccountStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		username VARCHAR(20) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (s *AccountStore) Create(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Email, a.Username, a.PasswordHash, a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.findOne(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM accounts WHERE email = $1
	`, email)
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (Account, error) {
	return s.findOne(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM accounts WHERE id = $1
	`, id)
}

func (s *AccountStore) UpdateUsername(ctx context.Context, id, username string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET username = $1 WHERE id = $2`, username, id)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *AccountStore) findOne(ctx context.Context, query string, arg any) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}
