package audit

import (
	"context"
	"sync"

	txcontext "verifica/pkg/platform/tx"
)

// InMemoryStore keeps audit entries in memory for unit tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append records an entry. Inside a staged transition the write is buffered
// and only becomes visible when the transition commits, mirroring how the
// postgres store joins the caller's transaction.
func (s *InMemoryStore) Append(ctx context.Context, entry Entry) error {
	apply := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = append(s.entries, entry)
		return nil
	}
	if stage := txcontext.StageFrom(ctx); stage != nil {
		stage.Defer(apply)
		return nil
	}
	return apply()
}

func (s *InMemoryStore) ListByVerification(_ context.Context, verificationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.VerificationID.String() == verificationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	// Newest first.
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Len reports the number of appended entries; used by tests asserting the
// no-orphan-transition property.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
