// Package service drives the provider approval workflow: the record state
// machine, its side effects, and the read paths the dashboard consumes.
//
// The state machine is pending -> approved | rejected, both terminal. Every
// transition commits its audit entry and the provider-account status flip in
// the same transaction as the status write; a caller can never observe a
// record flipped to approved with no matching history entry or account
// update.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verifica/internal/accounts"
	"verifica/internal/audit"
	"verifica/internal/documents"
	"verifica/internal/verification"
	"verifica/internal/verification/metrics"
	"verifica/internal/verification/reconcile"
	"verifica/internal/verification/stats"
	dErrors "verifica/pkg/domain-errors"
	"verifica/pkg/platform/sentinel"
	"verifica/pkg/requestcontext"
)

// ListingInvalidator is implemented by the documents listing cache. Nil is
// fine; reconciliation then simply skips invalidation.
type ListingInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service orchestrates verification operations on top of the stores.
type Service struct {
	store      verification.Store
	audit      audit.Store
	accounts   accounts.Store
	documents  documents.Store
	reconciler *reconcile.Reconciler
	listings   ListingInvalidator
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(
	store verification.Store,
	auditStore audit.Store,
	accountStore accounts.Store,
	documentStore documents.Store,
	reconciler *reconcile.Reconciler,
	listings ListingInvalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		audit:      auditStore,
		accounts:   accountStore,
		documents:  documentStore,
		reconciler: reconciler,
		listings:   listings,
		metrics:    m,
		logger:     logger,
	}
}

// ProviderUploads lists the raw upload state per provider as blob storage
// reports it. This is the "who has sent what" view the dashboard shows
// before any record exists; it reads through the listing cache.
func (s *Service) ProviderUploads(ctx context.Context) ([]documents.ProviderDocuments, error) {
	uploads, err := s.documents.ListProvidersWithDocuments(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable, try again")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list provider uploads")
	}
	return uploads, nil
}

// Reconcile runs a reconciliation pass and returns the authoritative record
// set. Safe to trigger repeatedly; duplicate-create races are absorbed by
// the store's conflict guard.
func (s *Service) Reconcile(ctx context.Context) (*reconcile.Result, error) {
	start := time.Now()
	result, err := s.reconciler.Run(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable, try again")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reconciliation failed")
	}
	s.metrics.ObserveReconcile(time.Since(start), result.Created)

	if s.listings != nil && result.Created > 0 {
		if err := s.listings.Invalidate(ctx); err != nil {
			// Stale cache self-heals on TTL; not worth failing the pass.
			s.logger.WarnContext(ctx, "listing cache invalidation failed", "error", err)
		}
	}
	return result, nil
}

// List returns records matching the filter.
func (s *Service) List(ctx context.Context, filter verification.Filter) ([]*verification.Record, error) {
	if filter.Status != "" && filter.Status != "all" && !verification.Status(filter.Status).Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", filter.Status)
	}
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown document type %q", filter.DocumentType)
	}
	records, err := s.store.ListAll(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verifications")
	}
	return records, nil
}

// Get returns a single record by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*verification.Record, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	return rec, nil
}

// Stats folds the current record set into aggregate counts. The snapshot may
// trail concurrent mutations slightly; the dashboard re-fetches after every
// action.
func (s *Service) Stats(ctx context.Context) (verification.Stats, error) {
	records, err := s.store.ListAll(ctx, verification.Filter{})
	if err != nil {
		return verification.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verifications")
	}
	return stats.Compute(records), nil
}

// Approve transitions a pending record to approved, appends the audit entry,
// and activates the provider account, all in one transaction.
//
// Preconditions: the record exists, is pending, and every required document
// type has at least one approved document. The eligibility check runs inside
// the transaction against the locked row, so a document rejected between the
// operator's page load and the click still blocks approval.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewedBy string) (*verification.Record, error) {
	if reviewedBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reviewer identity is required")
	}
	now := requestcontext.Now(ctx).UTC()

	rec, err := s.store.UpdateStatus(ctx, id, verification.Transition{
		To:         verification.StatusApproved,
		ReviewedBy: reviewedBy,
		ReviewedAt: now,
		Precheck: func(current *verification.Record) error {
			if missing := current.MissingRequirements(); len(missing) > 0 {
				return dErrors.Newf(dErrors.CodeNotEligible,
					"cannot approve: no approved document of type %s", joinTypes(missing))
			}
			return nil
		},
		InTx: func(ctx context.Context, updated *verification.Record) error {
			if err := s.audit.Append(ctx, audit.Entry{
				ID:             uuid.New(),
				VerificationID: updated.ID,
				ProviderID:     updated.ProviderID,
				Action:         audit.ActionApproved,
				ReviewedBy:     reviewedBy,
				ReviewedAt:     now,
			}); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
			if err := s.accounts.SetStatus(ctx, updated.ProviderID, accounts.StatusUpdate{
				Status:    accounts.StatusActive,
				DecidedAt: now,
				DecidedBy: reviewedBy,
			}); err != nil {
				return fmt.Errorf("activate provider account: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		s.metrics.IncrementDecision("approve", outcomeLabel(err))
		return nil, s.transitionError(err, "approve")
	}

	s.metrics.IncrementDecision("approve", "ok")
	s.logger.InfoContext(ctx, "verification approved",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", rec.ID,
		"provider_id", rec.ProviderID,
		"reviewed_by", reviewedBy,
	)
	return rec, nil
}

// Reject transitions a pending record to rejected with a mandatory reason,
// appends the audit entry, and marks the provider account rejected, all in
// one transaction.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason, reviewedBy string) (*verification.Record, error) {
	if reviewedBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reviewer identity is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "rejection reason is required")
	}
	now := requestcontext.Now(ctx).UTC()

	rec, err := s.store.UpdateStatus(ctx, id, verification.Transition{
		To:              verification.StatusRejected,
		ReviewedBy:      reviewedBy,
		ReviewedAt:      now,
		RejectionReason: reason,
		InTx: func(ctx context.Context, updated *verification.Record) error {
			if err := s.audit.Append(ctx, audit.Entry{
				ID:              uuid.New(),
				VerificationID:  updated.ID,
				ProviderID:      updated.ProviderID,
				Action:          audit.ActionRejected,
				ReviewedBy:      reviewedBy,
				ReviewedAt:      now,
				RejectionReason: reason,
			}); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
			if err := s.accounts.SetStatus(ctx, updated.ProviderID, accounts.StatusUpdate{
				Status:          accounts.StatusRejected,
				DecidedAt:       now,
				DecidedBy:       reviewedBy,
				RejectionReason: reason,
			}); err != nil {
				return fmt.Errorf("reject provider account: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		s.metrics.IncrementDecision("reject", outcomeLabel(err))
		return nil, s.transitionError(err, "reject")
	}

	s.metrics.IncrementDecision("reject", "ok")
	s.logger.InfoContext(ctx, "verification rejected",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", rec.ID,
		"provider_id", rec.ProviderID,
		"reviewed_by", reviewedBy,
		"reason", reason,
	)
	return rec, nil
}

// ApproveDocument flips one document to approved. Document decisions never
// transition the parent record; the operator approves the record separately
// once the required documents are acceptable.
func (s *Service) ApproveDocument(ctx context.Context, id, documentID uuid.UUID) (*verification.Record, error) {
	return s.updateDocument(ctx, id, documentID, verification.StatusApproved, "approve_document")
}

// RejectDocument flips one document to rejected.
func (s *Service) RejectDocument(ctx context.Context, id, documentID uuid.UUID) (*verification.Record, error) {
	return s.updateDocument(ctx, id, documentID, verification.StatusRejected, "reject_document")
}

func (s *Service) updateDocument(ctx context.Context, id, documentID uuid.UUID, status verification.Status, action string) (*verification.Record, error) {
	rec, err := s.store.UpdateDocumentStatus(ctx, id, documentID, status)
	if err != nil {
		s.metrics.IncrementDecision(action, outcomeLabel(err))
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification record or document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
	}
	s.metrics.IncrementDecision(action, "ok")
	return rec, nil
}

// History lists the audit trail for one record, newest first.
func (s *Service) History(ctx context.Context, verificationID uuid.UUID) ([]audit.Entry, error) {
	entries, err := s.audit.ListByVerification(ctx, verificationID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit history")
	}
	return entries, nil
}

// RecentHistory lists the most recent decisions across all records.
func (s *Service) RecentHistory(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit history")
	}
	return entries, nil
}

// transitionError translates store sentinels into operator-facing errors.
// Coded errors (the eligibility gate) pass through untouched.
func (s *Service) transitionError(err error, action string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "verification record not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot %s: record has already been reviewed", action)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action+" verification")
	}
}

func outcomeLabel(err error) string {
	switch {
	case dErrors.Is(err, dErrors.CodeNotEligible):
		return "not_eligible"
	case errors.Is(err, sentinel.ErrInvalidState), dErrors.Is(err, dErrors.CodeInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, sentinel.ErrNotFound), dErrors.Is(err, dErrors.CodeNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func joinTypes(types []verification.DocumentType) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += string(t)
	}
	return out
}
