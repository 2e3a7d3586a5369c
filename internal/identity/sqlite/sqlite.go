// Package sqlite persists identity accounts in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/questline/partyhub/internal/identity"
	"github.com/questline/partyhub/internal/ids"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id       TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL DEFAULT '',
	platform_type TEXT NOT NULL DEFAULT '',
	platform_id   TEXT NOT NULL DEFAULT '',
	secret_hash   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS account_attributes (
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (user_id, name),
	FOREIGN KEY (user_id) REFERENCES accounts(user_id) ON DELETE CASCADE
);
`

// SQLiteStore implements identity.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertAccount inserts or replaces an account row, attributes included.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, account *identity.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO accounts (user_id, display_name, platform_type, platform_id, secret_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			platform_type = excluded.platform_type,
			platform_id = excluded.platform_id,
			secret_hash = excluded.secret_hash
	`
	_, err = tx.ExecContext(ctx, query,
		account.UserID.PrimaryID(),
		account.DisplayName,
		account.UserID.PlatformType(),
		account.UserID.PlatformID(),
		account.SecretHash,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}

	for name, value := range account.Attributes {
		if err := setAttributeTx(ctx, tx, account.UserID.PrimaryID(), name, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by backend user id.
func (s *SQLiteStore) GetAccount(ctx context.Context, primaryID string) (*identity.Account, error) {
	query := `
		SELECT user_id, display_name, platform_type, platform_id, secret_hash, created_at
		FROM accounts
		WHERE user_id = ?
	`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, primaryID))
	if err != nil {
		return nil, err
	}
	if err := s.loadAttributes(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts retrieves every stored account.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*identity.Account, error) {
	query := `
		SELECT user_id, display_name, platform_type, platform_id, secret_hash, created_at
		FROM accounts
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*identity.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	for _, account := range accounts {
		if err := s.loadAttributes(ctx, account); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// SetAttribute stores a single account attribute.
func (s *SQLiteStore) SetAttribute(ctx context.Context, primaryID, name, value string) error {
	return setAttributeTx(ctx, s.db, primaryID, name, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setAttributeTx(ctx context.Context, db execer, primaryID, name, value string) error {
	query := `
		INSERT INTO account_attributes (user_id, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET value = excluded.value
	`
	if _, err := db.ExecContext(ctx, query, primaryID, name, value); err != nil {
		return fmt.Errorf("set attribute %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) loadAttributes(ctx context.Context, account *identity.Account) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM account_attributes WHERE user_id = ?`,
		account.UserID.PrimaryID())
	if err != nil {
		return fmt.Errorf("load attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		account.Attributes[name] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attributes: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*identity.Account, error) {
	var (
		primaryID    string
		displayName  string
		platformType string
		platformID   string
		secretHash   string
		createdAt    time.Time
	)
	err := row.Scan(&primaryID, &displayName, &platformType, &platformID, &secretHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &identity.Account{
		UserID: ids.NewUserID(ids.Composite{
			ID:           primaryID,
			PlatformType: platformType,
			PlatformID:   platformID,
		}),
		DisplayName: displayName,
		SecretHash:  secretHash,
		Attributes:  make(map[string]string),
		CreatedAt:   createdAt,
	}, nil
}
