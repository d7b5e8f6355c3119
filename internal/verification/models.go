package verification

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review state of a document or a verification record.
// pending is the only non-terminal state; approved and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further record transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DocumentType identifies an onboarding document category.
type DocumentType string

const (
	DocumentTypeCPFRG                 DocumentType = "cpf_rg"
	DocumentTypeCNH                   DocumentType = "cnh"
	DocumentTypeComprovanteResidencia DocumentType = "comprovante_residencia"
	DocumentTypeCertificado           DocumentType = "certificado"
)

// RequiredDocumentTypes must each have at least one approved document before
// a record may transition to approved.
var RequiredDocumentTypes = []DocumentType{
	DocumentTypeCPFRG,
	DocumentTypeComprovanteResidencia,
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeCPFRG, DocumentTypeCNH, DocumentTypeComprovanteResidencia, DocumentTypeCertificado:
		return true
	}
	return false
}

// Document is a single uploaded file attached to a verification record.
// Owned by exactly one record, never shared.
type Document struct {
	ID         uuid.UUID    `json:"id"`
	Type       DocumentType `json:"type"`
	URL        string       `json:"url"`
	UploadedAt time.Time    `json:"uploaded_at"`
	Status     Status       `json:"status"`
	SizeBytes  int64        `json:"size_bytes,omitempty"`
	MimeType   string       `json:"mime_type,omitempty"`
}

// Record is the per-provider verification aggregate. Exactly one record
// exists per provider; the reconciler enforces this, not the store schema.
type Record struct {
	ID              uuid.UUID
	ProviderID      string
	ProviderName    string
	ProviderEmail   string
	ProviderPhone   string
	Status          Status
	Documents       map[DocumentType][]Document
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
	ReviewedBy      string
	RejectionReason string
}

// DocumentCount returns the total number of documents across all types.
func (r *Record) DocumentCount() int {
	n := 0
	for _, docs := range r.Documents {
		n += len(docs)
	}
	return n
}

// FindDocument locates a document by ID across all types.
func (r *Record) FindDocument(docID uuid.UUID) (*Document, bool) {
	for docType, docs := range r.Documents {
		for i := range docs {
			if docs[i].ID == docID {
				return &r.Documents[docType][i], true
			}
		}
	}
	return nil, false
}

// MissingRequirements returns the required document types that do not yet
// have an approved document, in declaration order. Empty means the record is
// eligible for approval.
func (r *Record) MissingRequirements() []DocumentType {
	var missing []DocumentType
	for _, required := range RequiredDocumentTypes {
		approved := false
		for _, doc := range r.Documents[required] {
			if doc.Status == StatusApproved {
				approved = true
				break
			}
		}
		if !approved {
			missing = append(missing, required)
		}
	}
	return missing
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing the documents map.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		cp.ReviewedAt = &t
	}
	cp.Documents = make(map[DocumentType][]Document, len(r.Documents))
	for docType, docs := range r.Documents {
		cp.Documents[docType] = append([]Document(nil), docs...)
	}
	return &cp
}

// Filter narrows a record listing. Zero values are no-ops; all set fields
// compose with AND semantics.
type Filter struct {
	// Status keeps records with this exact status. "all" or empty passes
	// everything through.
	Status string

	// Search is a case-insensitive substring match against provider name,
	// email, or phone (OR semantics).
	Search string

	// DocumentType keeps records holding at least one document of this type.
	DocumentType DocumentType

	// Limit and Offset page the result set. Limit 0 means no limit.
	Limit  int
	Offset int
}

// Stats are aggregate counts over a record snapshot, recomputed on demand
// rather than incrementally maintained.
type Stats struct {
	Total           int                  `json:"total"`
	Pending         int                  `json:"pending"`
	Approved        int                  `json:"approved"`
	Rejected        int                  `json:"rejected"`
	TotalDocuments  int                  `json:"total_documents"`
	DocumentsByType map[DocumentType]int `json:"documents_by_type"`
}
