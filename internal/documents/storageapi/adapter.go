package storageapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"verifica/internal/documents"
	"verifica/internal/verification"
)

// listFanout bounds how many per-provider folder listings run concurrently.
const listFanout = 8

// ListProvidersWithDocuments lists every provider folder and the uploads in
// it. Folder listings fan out with a bounded errgroup since the storage API
// handles them independently. Any storage failure surfaces as
// ErrStoreUnavailable so callers can tell "no documents" from "could not
// check".
func (c *Client) ListProvidersWithDocuments(ctx context.Context) ([]documents.ProviderDocuments, error) {
	folders, err := c.listAll(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", documents.ErrStoreUnavailable, err)
	}

	results := make([]documents.ProviderDocuments, len(folders))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(listFanout)

	for i, folder := range folders {
		// Folders come back as entries with a nil object ID; files at the
		// top level are not provider uploads and are skipped.
		if folder.ID != "" {
			continue
		}
		providerID := folder.Name
		g.Go(func() error {
			provider, err := c.listProvider(ctx, providerID)
			if err != nil {
				return err
			}
			results[i] = provider
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", documents.ErrStoreUnavailable, err)
	}

	out := make([]documents.ProviderDocuments, 0, len(results))
	for _, p := range results {
		if p.ProviderID != "" && len(p.Documents) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// HasDocuments checks a single provider folder without walking the bucket.
func (c *Client) HasDocuments(ctx context.Context, providerID string) (bool, error) {
	objects, err := c.listObjects(ctx, providerID+"/", 0)
	if err != nil {
		return false, fmt.Errorf("%w: %v", documents.ErrStoreUnavailable, err)
	}
	for _, obj := range objects {
		if obj.ID != "" {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) listProvider(ctx context.Context, providerID string) (documents.ProviderDocuments, error) {
	objects, err := c.listAll(ctx, providerID+"/")
	if err != nil {
		return documents.ProviderDocuments{}, err
	}

	provider := documents.ProviderDocuments{
		ProviderID: providerID,
		Documents:  make(map[verification.DocumentType][]verification.Document),
	}
	for _, obj := range objects {
		if obj.ID == "" {
			continue
		}
		docType := typeFromName(obj.Name)
		if !docType.Valid() {
			continue
		}
		doc := verification.Document{
			ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(bucket+"/"+providerID+"/"+obj.Name)),
			Type:       docType,
			URL:        c.publicURL(providerID + "/" + obj.Name),
			UploadedAt: obj.CreatedAt,
			Status:     verification.StatusPending,
			SizeBytes:  obj.Metadata.Size,
			MimeType:   obj.Metadata.MimeType,
		}
		provider.Documents[docType] = append(provider.Documents[docType], doc)
		if provider.UploadedAt.IsZero() || obj.CreatedAt.Before(provider.UploadedAt) {
			provider.UploadedAt = obj.CreatedAt
		}
	}
	return provider, nil
}

// typeFromName extracts the document type from a file name of the form
// "<doc_type>-<suffix>.<ext>". Uploads that don't follow the convention are
// ignored rather than guessed at.
func typeFromName(name string) verification.DocumentType {
	base := name
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	for _, t := range []verification.DocumentType{
		verification.DocumentTypeComprovanteResidencia,
		verification.DocumentTypeCertificado,
		verification.DocumentTypeCPFRG,
		verification.DocumentTypeCNH,
	} {
		if base == string(t) || strings.HasPrefix(base, string(t)+"-") {
			return t
		}
	}
	return ""
}
