package accounts

import (
	"context"
	"sync"

	"verifica/pkg/platform/sentinel"
	txcontext "verifica/pkg/platform/tx"
)

// AccountState is the full in-memory account row, exposed so tests can
// assert on the side effects of approval and rejection.
type AccountState struct {
	Profile         Profile
	Status          AccountStatus
	Update          *StatusUpdate
	StatusWriteSeen int
}

// InMemoryStore keeps provider accounts in memory for unit tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*AccountState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]*AccountState)}
}

// Seed registers a provider account profile.
func (s *InMemoryStore) Seed(profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[profile.ProviderID] = &AccountState{Profile: profile}
}

func (s *InMemoryStore) GetProfile(_ context.Context, providerID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[providerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p := acct.Profile
	return &p, nil
}

// SetStatus flips the account status. A missing account is a no-op, like
// the postgres store's zero-row UPDATE: providers can be approved before
// their account row settles. Inside a staged transition the write is
// buffered until the transition commits.
func (s *InMemoryStore) SetStatus(ctx context.Context, providerID string, update StatusUpdate) error {
	apply := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		acct, ok := s.accounts[providerID]
		if !ok {
			return nil
		}
		// Idempotent: repeating the same status is a no-op.
		if acct.Status == update.Status {
			return nil
		}
		acct.Status = update.Status
		acct.Update = &update
		acct.StatusWriteSeen++
		return nil
	}
	if stage := txcontext.StageFrom(ctx); stage != nil {
		stage.Defer(apply)
		return nil
	}
	return apply()
}

// Account returns the current state for assertions in tests.
func (s *InMemoryStore) Account(providerID string) (AccountState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[providerID]
	if !ok {
		return AccountState{}, false
	}
	return *acct, true
}
