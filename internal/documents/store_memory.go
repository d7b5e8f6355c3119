package documents

import (
	"context"
	"sync"
)

// InMemoryStore is a fake blob-storage view for unit tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	providers map[string]ProviderDocuments

	// Unavailable makes every call fail with ErrStoreUnavailable, for
	// exercising the "could not check" path.
	Unavailable bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{providers: make(map[string]ProviderDocuments)}
}

// Put registers a provider's uploads.
func (s *InMemoryStore) Put(p ProviderDocuments) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ProviderID] = p
}

func (s *InMemoryStore) ListProvidersWithDocuments(_ context.Context) ([]ProviderDocuments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Unavailable {
		return nil, ErrStoreUnavailable
	}
	out := make([]ProviderDocuments, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	return out, nil
}

func (s *InMemoryStore) HasDocuments(_ context.Context, providerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Unavailable {
		return false, ErrStoreUnavailable
	}
	p, ok := s.providers[providerID]
	return ok && len(p.Documents) > 0, nil
}
