// Package accounts is the boundary to the provider account store owned by
// the user-management system. This subsystem reads contact fields for display
// enrichment and writes the status field as a side effect of approval or
// rejection; it owns nothing else about the account.
package accounts

import (
	"context"
	"time"
)

// AccountStatus mirrors the subset of provider account states this subsystem
// writes.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusRejected AccountStatus = "rejected"
)

// Profile is the read-side projection used to enrich verification records.
type Profile struct {
	ProviderID string
	Name       string
	Email      string
	Phone      string
}

// StatusUpdate is the write applied on approval or rejection. Applying the
// same update twice must be a no-op so an ambiguous transaction timeout can
// be retried safely after re-reading the record.
type StatusUpdate struct {
	Status          AccountStatus
	DecidedAt       time.Time
	DecidedBy       string
	RejectionReason string
}

// Store reads and writes provider accounts. SetStatus must join a caller
// transaction carried in the context (pkg/platform/tx) when the account rows
// live in the same database, so the account flip commits with the
// verification transition.
type Store interface {
	GetProfile(ctx context.Context, providerID string) (*Profile, error)
	SetStatus(ctx context.Context, providerID string, update StatusUpdate) error
}
