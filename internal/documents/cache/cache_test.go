package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifica/internal/documents"
)

// countingStore tracks how often the source listing was hit.
type countingStore struct {
	*documents.InMemoryStore
	listCalls int
}

func newCountingStore() *countingStore {
	return &countingStore{InMemoryStore: documents.NewInMemoryStore()}
}

func (c *countingStore) ListProvidersWithDocuments(ctx context.Context) ([]documents.ProviderDocuments, error) {
	c.listCalls++
	return c.InMemoryStore.ListProvidersWithDocuments(ctx)
}

func TestNilClientPassesThrough(t *testing.T) {
	source := newCountingStore()
	source.Put(documents.ProviderDocuments{ProviderID: "prov-1"})

	cached := New(source, nil, time.Minute, slog.New(slog.DiscardHandler))

	for i := 0; i < 3; i++ {
		_, err := cached.ListProvidersWithDocuments(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, source.listCalls)

	assert.NoError(t, cached.Invalidate(context.Background()))
}

func TestSourceUnwraps(t *testing.T) {
	source := newCountingStore()
	cached := New(source, nil, time.Minute, slog.New(slog.DiscardHandler))

	assert.Same(t, documents.Store(source), cached.Source())
}
