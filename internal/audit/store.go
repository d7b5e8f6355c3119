package audit

import "context"

// Store persists audit entries. Append must join a caller transaction when
// one is present in the context (pkg/platform/tx) so the history write
// commits atomically with the status transition that caused it.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByVerification(ctx context.Context, verificationID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
