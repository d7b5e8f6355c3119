package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transition describes a record-level status change. The store applies it
// atomically: the row is read under a lock keyed on its current status, so
// two concurrent approvals of the same pending record produce exactly one
// winner; the loser gets sentinel.ErrInvalidState.
type Transition struct {
	To              Status
	ReviewedBy      string
	ReviewedAt      time.Time
	RejectionReason string

	// Precheck runs against the locked row before anything is written.
	// Returning an error aborts the transaction. The service uses this for
	// the eligibility gate so a concurrent document rejection cannot slip
	// past it.
	Precheck func(current *Record) error

	// InTx runs after the status write with the transaction carried in ctx
	// (pkg/platform/tx). The service appends the audit entry and applies the
	// provider-account side effect here; if any of it fails the whole
	// transition rolls back.
	InTx func(ctx context.Context, updated *Record) error
}

// Store persists verification records.
//
// Errors follow pkg/platform/sentinel: ErrNotFound for missing records,
// ErrConflict for duplicate provider IDs on Create, ErrInvalidState when a
// transition is attempted out of a terminal status.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByProviderID(ctx context.Context, providerID string) (*Record, error)
	ListAll(ctx context.Context, filter Filter) ([]*Record, error)

	// Create inserts a new record. A record for the same provider already
	// existing is reported as sentinel.ErrConflict; the reconciler treats
	// that as its idempotency guard, not as a failure.
	Create(ctx context.Context, record *Record) error

	// UpdateStatus performs the full record transition plus everything the
	// Transition carries as a single transaction.
	UpdateStatus(ctx context.Context, id uuid.UUID, transition Transition) (*Record, error)

	// UpdateDocumentStatus flips a single document's status without touching
	// the parent record's status.
	UpdateDocumentStatus(ctx context.Context, id, documentID uuid.UUID, status Status) (*Record, error)
}
