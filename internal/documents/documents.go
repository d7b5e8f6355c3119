// Package documents is the read-only boundary to blob storage. Documents are
// written by the provider-facing upload flow; this subsystem only answers
// "which providers have uploads" and "does provider X have uploads".
package documents

import (
	"context"
	"fmt"
	"time"

	"verifica/internal/verification"
	"verifica/pkg/platform/sentinel"
)

// ErrStoreUnavailable signals that blob storage could not be reached.
// Callers must treat this as "could not check", never as "no documents".
var ErrStoreUnavailable = fmt.Errorf("document store %w", sentinel.ErrUnavailable)

// ProviderDocuments is one provider's uploads as discovered in blob storage.
// UploadedAt is the earliest upload timestamp and becomes the record's
// SubmittedAt when the reconciler creates one.
type ProviderDocuments struct {
	ProviderID string
	Documents  map[verification.DocumentType][]verification.Document
	UploadedAt time.Time
}

// Store lists provider uploads. Implementations are read-only; uploads
// happen in the provider-facing app.
type Store interface {
	ListProvidersWithDocuments(ctx context.Context) ([]ProviderDocuments, error)
	HasDocuments(ctx context.Context, providerID string) (bool, error)
}
