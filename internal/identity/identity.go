// Package identity manages local player accounts: composite identities,
// display names, login secrets and per-account attributes such as the
// crossplay preference. Accounts are persisted through a Store and served
// from an in-memory cache, so attribute lookups on the hot path never block.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/ids"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("account not found")

// ErrBadCredentials is returned when a login secret does not match.
var ErrBadCredentials = errors.New("invalid credentials")

// Account is one local player.
type Account struct {
	UserID      ids.UserID
	DisplayName string
	SecretHash  string
	Attributes  map[string]string
	CreatedAt   time.Time
}

// Store handles account persistence.
type Store interface {
	// UpsertAccount inserts or replaces an account row, attributes included.
	UpsertAccount(ctx context.Context, account *Account) error

	// GetAccount retrieves an account by backend user id.
	GetAccount(ctx context.Context, primaryID string) (*Account, error)

	// ListAccounts retrieves every stored account.
	ListAccounts(ctx context.Context) ([]*Account, error)

	// SetAttribute stores a single account attribute.
	SetAttribute(ctx context.Context, primaryID, name, value string) error

	// Close closes the underlying database connection.
	Close() error
}

// Service is the account surface the rest of the system talks to. Reads are
// answered from the cache; writes go through the store first.
type Service struct {
	log   *zerolog.Logger
	store Store

	mu    sync.RWMutex
	cache map[string]*Account
}

// NewService builds a service over the given store.
func NewService(log *zerolog.Logger, store Store) *Service {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Service{
		log:   log,
		store: store,
		cache: make(map[string]*Account),
	}
}

// Load warms the cache from the store.
func (s *Service) Load(ctx context.Context) error {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range accounts {
		s.cache[account.UserID.PrimaryID()] = account
	}
	s.log.Info().Int("accounts", len(accounts)).Msg("identity cache loaded")
	return nil
}

// Register creates an account with a hashed login secret.
func (s *Service) Register(ctx context.Context, userID ids.UserID, displayName, secret string) (*Account, error) {
	if !userID.IsValid() {
		return nil, fmt.Errorf("register: malformed user id %q", userID.PrimaryID())
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, err
	}
	account := &Account{
		UserID:      userID,
		DisplayName: displayName,
		SecretHash:  hash,
		Attributes:  make(map[string]string),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.UpsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}
	s.mu.Lock()
	s.cache[userID.PrimaryID()] = account
	s.mu.Unlock()
	return account, nil
}

// Login verifies the secret and issues a session token.
func (s *Service) Login(ctx context.Context, tokens *TokenConfig, primaryID, secret string) (string, error) {
	account, err := s.lookup(ctx, primaryID)
	if err != nil {
		return "", err
	}
	if !VerifySecret(account.SecretHash, secret) {
		return "", ErrBadCredentials
	}
	token, err := GenerateToken(tokens, account)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Account returns the cached account for a backend user id.
func (s *Service) Account(primaryID string) (*Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.cache[primaryID]
	return account, ok
}

// Accounts lists every cached account.
func (s *Service) Accounts() []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.cache))
	for _, account := range s.cache {
		out = append(out, account)
	}
	return out
}

// SetAttribute persists one account attribute and updates the cache.
func (s *Service) SetAttribute(ctx context.Context, primaryID, name, value string) error {
	s.mu.RLock()
	account, ok := s.cache[primaryID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := s.store.SetAttribute(ctx, primaryID, name, value); err != nil {
		return fmt.Errorf("persist attribute %s: %w", name, err)
	}
	s.mu.Lock()
	account.Attributes[name] = value
	s.mu.Unlock()
	return nil
}

// UserAttribute answers attribute lookups from the cache. It satisfies the
// party registry's attribute source contract.
func (s *Service) UserAttribute(userID ids.UserID, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.cache[userID.PrimaryID()]
	if !ok {
		return "", false
	}
	value, ok := account.Attributes[name]
	return value, ok
}

func (s *Service) lookup(ctx context.Context, primaryID string) (*Account, error) {
	if account, ok := s.Account(primaryID); ok {
		return account, nil
	}
	account, err := s.store.GetAccount(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[primaryID] = account
	s.mu.Unlock()
	return account, nil
}
