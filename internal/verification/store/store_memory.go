package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"verifica/internal/verification"
	"verifica/internal/verification/stats"
	"verifica/pkg/platform/sentinel"
	txcontext "verifica/pkg/platform/tx"
)

// InMemoryStore keeps verification records in memory. A single mutex stands
// in for the database transaction: UpdateStatus holds it across the
// precheck, the write, and the InTx callback, which preserves the
// one-winner guarantee under concurrent approvals. Collaborator writes made
// inside InTx are staged and only applied when the transition commits, so a
// failed transition leaves no trace in the audit or account stores.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]*verification.Record
	byProvider map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:    make(map[uuid.UUID]*verification.Record),
		byProvider: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) GetByProviderID(_ context.Context, providerID string) (*verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byProvider[providerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

func (s *InMemoryStore) ListAll(_ context.Context, filter verification.Filter) ([]*verification.Record, error) {
	s.mu.RLock()
	snapshot := make([]*verification.Record, 0, len(s.records))
	for _, rec := range s.records {
		snapshot = append(snapshot, rec.Clone())
	}
	s.mu.RUnlock()

	// Newest submissions first, ID as tiebreak for a stable page order.
	sort.Slice(snapshot, func(i, j int) bool {
		if !snapshot[i].SubmittedAt.Equal(snapshot[j].SubmittedAt) {
			return snapshot[i].SubmittedAt.After(snapshot[j].SubmittedAt)
		}
		return snapshot[i].ID.String() < snapshot[j].ID.String()
	})
	return stats.Apply(snapshot, filter), nil
}

func (s *InMemoryStore) Create(_ context.Context, record *verification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byProvider[record.ProviderID]; exists {
		return sentinel.ErrConflict
	}
	cp := record.Clone()
	s.records[cp.ID] = cp
	s.byProvider[cp.ProviderID] = cp.ID
	return nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, transition verification.Transition) (*verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.Status != verification.StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	if transition.Precheck != nil {
		if err := transition.Precheck(rec.Clone()); err != nil {
			return nil, err
		}
	}

	updated := rec.Clone()
	updated.Status = transition.To
	reviewedAt := transition.ReviewedAt
	updated.ReviewedAt = &reviewedAt
	updated.ReviewedBy = transition.ReviewedBy
	updated.RejectionReason = transition.RejectionReason

	if transition.InTx != nil {
		// No real transaction to join in memory; the held mutex makes the
		// callback atomic with the write below, and the stage holds back
		// collaborator writes until the callback has succeeded.
		stagedCtx, stage := txcontext.WithStage(ctx)
		if err := transition.InTx(stagedCtx, updated.Clone()); err != nil {
			return nil, err
		}
		if err := stage.Commit(); err != nil {
			return nil, err
		}
	}

	s.records[id] = updated
	return updated.Clone(), nil
}

func (s *InMemoryStore) UpdateDocumentStatus(_ context.Context, id, documentID uuid.UUID, status verification.Status) (*verification.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	doc, ok := rec.FindDocument(documentID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	doc.Status = status
	return rec.Clone(), nil
}
