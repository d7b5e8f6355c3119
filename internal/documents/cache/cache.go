// Package cache wraps a documents.Store with a redis read-through cache.
// Listing the whole bucket is the slowest call in the system and the
// dashboard re-fetches it on every page load; a short TTL keeps that cheap.
// Reconciliation must not run against stale listings, so it bypasses the
// cache and invalidates it afterwards.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"verifica/internal/documents"
)

const listingKey = "verifica:documents:listing"

// Store is a read-through cache over a documents.Store. A nil redis client
// degrades to pass-through, mirroring how the platform treats redis as
// optional.
type Store struct {
	next   documents.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(next documents.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{next: next, client: client, ttl: ttl, logger: logger}
}

func (s *Store) ListProvidersWithDocuments(ctx context.Context) ([]documents.ProviderDocuments, error) {
	if s.client == nil {
		return s.next.ListProvidersWithDocuments(ctx)
	}

	raw, err := s.client.Get(ctx, listingKey).Bytes()
	if err == nil {
		var cached []documents.ProviderDocuments
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		s.client.Del(ctx, listingKey)
	} else if !errors.Is(err, redis.Nil) {
		// Cache trouble must not take the read path down.
		s.logger.WarnContext(ctx, "listing cache read failed", "error", err)
	}

	listing, err := s.next.ListProvidersWithDocuments(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(listing); err == nil {
		if err := s.client.Set(ctx, listingKey, raw, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "listing cache write failed", "error", err)
		}
	}
	return listing, nil
}

// HasDocuments is a point lookup; it goes straight to the source since the
// adapter answers it with a single folder listing.
func (s *Store) HasDocuments(ctx context.Context, providerID string) (bool, error) {
	return s.next.HasDocuments(ctx, providerID)
}

// Invalidate drops the cached listing. The reconciler calls this after a
// pass so the next dashboard load sees newly tracked providers.
func (s *Store) Invalidate(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, listingKey).Err(); err != nil {
		return fmt.Errorf("invalidate listing cache: %w", err)
	}
	return nil
}

// Source returns the underlying store, used by the reconciler to bypass the
// cache.
func (s *Store) Source() documents.Store {
	return s.next
}
