package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action classifies the decision an audit entry records.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Entry is the immutable record of a single approval or rejection decision.
// Entries are append-only: never mutated, never deleted. They are the durable
// answer to "who approved this provider and why".
type Entry struct {
	ID              uuid.UUID
	VerificationID  uuid.UUID
	ProviderID      string
	Action          Action
	ReviewedBy      string
	ReviewedAt      time.Time
	RejectionReason string
	Notes           string
}
