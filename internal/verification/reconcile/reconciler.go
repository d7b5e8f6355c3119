// Package reconcile derives verification records from raw document uploads
// not yet tracked in the repository. The pass is an idempotent upsert: it
// only ever adds missing records, never mutates existing ones, and treats a
// duplicate-create race as the idempotency guard working rather than a
// failure. Running it repeatedly or concurrently is safe.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"verifica/internal/accounts"
	"verifica/internal/documents"
	"verifica/internal/verification"
	"verifica/pkg/platform/sentinel"
)

// Result summarizes one reconciliation pass.
type Result struct {
	Records []*verification.Record
	Created int
	Skipped int // duplicate-create races recovered silently
}

// Reconciler merges the two sources of truth: documents that exist in blob
// storage and records that exist in the repository.
type Reconciler struct {
	store     verification.Store
	documents documents.Store
	accounts  accounts.Store
	logger    *slog.Logger
}

func New(store verification.Store, docs documents.Store, accts accounts.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, documents: docs, accounts: accts, logger: logger}
}

// Run produces the complete, de-duplicated record set. Both sources load in
// parallel; a storage failure aborts the pass (ErrStoreUnavailable must
// never read as "no documents").
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	var (
		existing   []*verification.Record
		discovered []documents.ProviderDocuments
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		existing, err = r.store.ListAll(gctx, verification.Filter{})
		if err != nil {
			return fmt.Errorf("load existing records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		discovered, err = r.documents.ListProvidersWithDocuments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byProvider := make(map[string]*verification.Record, len(existing))
	for _, rec := range existing {
		byProvider[rec.ProviderID] = rec
	}

	result := &Result{Records: existing}
	for _, provider := range Missing(byProvider, discovered) {
		rec, err := r.createRecord(ctx, provider)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Another pass won the race; fetch what it created.
				result.Skipped++
				rec, err = r.store.GetByProviderID(ctx, provider.ProviderID)
				if err != nil {
					return nil, fmt.Errorf("reload raced record: %w", err)
				}
				result.Records = append(result.Records, rec)
				continue
			}
			return nil, fmt.Errorf("create record for provider %s: %w", provider.ProviderID, err)
		}
		result.Created++
		result.Records = append(result.Records, rec)
	}

	if result.Created > 0 || result.Skipped > 0 {
		r.logger.InfoContext(ctx, "reconciliation pass",
			"existing", len(existing),
			"created", result.Created,
			"skipped", result.Skipped,
		)
	}
	return result, nil
}

// Missing is the pure half of the merge: which discovered providers have no
// record yet. Split out so the merge logic tests without stores.
func Missing(existing map[string]*verification.Record, discovered []documents.ProviderDocuments) []documents.ProviderDocuments {
	var missing []documents.ProviderDocuments
	for _, provider := range discovered {
		if _, ok := existing[provider.ProviderID]; ok {
			continue
		}
		if len(provider.Documents) == 0 {
			continue
		}
		missing = append(missing, provider)
	}
	return missing
}

func (r *Reconciler) createRecord(ctx context.Context, provider documents.ProviderDocuments) (*verification.Record, error) {
	rec := &verification.Record{
		ID:          uuid.New(),
		ProviderID:  provider.ProviderID,
		Status:      verification.StatusPending,
		Documents:   provider.Documents,
		SubmittedAt: submittedAt(provider),
	}

	// Enrich from the account store when the profile exists; a provider
	// uploading before their account settles is still tracked.
	profile, err := r.accounts.GetProfile(ctx, provider.ProviderID)
	switch {
	case err == nil:
		rec.ProviderName = profile.Name
		rec.ProviderEmail = profile.Email
		rec.ProviderPhone = profile.Phone
	case errors.Is(err, sentinel.ErrNotFound):
		r.logger.WarnContext(ctx, "provider account missing during reconcile",
			"provider_id", provider.ProviderID,
		)
	default:
		return nil, fmt.Errorf("load provider profile: %w", err)
	}

	if err := r.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func submittedAt(provider documents.ProviderDocuments) time.Time {
	earliest := provider.UploadedAt
	for _, docs := range provider.Documents {
		for _, doc := range docs {
			if earliest.IsZero() || doc.UploadedAt.Before(earliest) {
				earliest = doc.UploadedAt
			}
		}
	}
	if earliest.IsZero() {
		earliest = time.Now().UTC()
	}
	return earliest
}
