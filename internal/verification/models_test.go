package verification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusApproved.Valid())
	assert.True(t, StatusRejected.Valid())
	assert.False(t, Status("archived").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestDocumentTypeValid(t *testing.T) {
	for _, dt := range []DocumentType{
		DocumentTypeCPFRG, DocumentTypeCNH,
		DocumentTypeComprovanteResidencia, DocumentTypeCertificado,
	} {
		assert.True(t, dt.Valid(), string(dt))
	}
	assert.False(t, DocumentType("passport").Valid())
}

func TestMissingRequirements(t *testing.T) {
	doc := func(status Status) Document {
		return Document{ID: uuid.New(), Status: status}
	}

	t.Run("no documents at all", func(t *testing.T) {
		rec := &Record{}
		assert.Equal(t, RequiredDocumentTypes, rec.MissingRequirements())
	})

	t.Run("pending documents do not satisfy", func(t *testing.T) {
		rec := &Record{Documents: map[DocumentType][]Document{
			DocumentTypeCPFRG:                 {doc(StatusPending)},
			DocumentTypeComprovanteResidencia: {doc(StatusApproved)},
		}}
		assert.Equal(t, []DocumentType{DocumentTypeCPFRG}, rec.MissingRequirements())
	})

	t.Run("one approved document per required type satisfies", func(t *testing.T) {
		rec := &Record{Documents: map[DocumentType][]Document{
			DocumentTypeCPFRG:                 {doc(StatusRejected), doc(StatusApproved)},
			DocumentTypeComprovanteResidencia: {doc(StatusApproved)},
		}}
		assert.Empty(t, rec.MissingRequirements())
	})

	t.Run("optional types never block", func(t *testing.T) {
		rec := &Record{Documents: map[DocumentType][]Document{
			DocumentTypeCPFRG:                 {doc(StatusApproved)},
			DocumentTypeComprovanteResidencia: {doc(StatusApproved)},
			DocumentTypeCNH:                   {doc(StatusRejected)},
		}}
		assert.Empty(t, rec.MissingRequirements())
	})
}

func TestFindDocument(t *testing.T) {
	target := Document{ID: uuid.New(), Type: DocumentTypeCNH, Status: StatusPending}
	rec := &Record{Documents: map[DocumentType][]Document{
		DocumentTypeCNH: {target},
	}}

	found, ok := rec.FindDocument(target.ID)
	require.True(t, ok)
	found.Status = StatusApproved
	// FindDocument returns a pointer into the record.
	assert.Equal(t, StatusApproved, rec.Documents[DocumentTypeCNH][0].Status)

	_, ok = rec.FindDocument(uuid.New())
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	reviewedAt := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	rec := &Record{
		ID:         uuid.New(),
		Status:     StatusApproved,
		ReviewedAt: &reviewedAt,
		Documents: map[DocumentType][]Document{
			DocumentTypeCPFRG: {{ID: uuid.New(), Status: StatusApproved}},
		},
	}

	clone := rec.Clone()
	clone.Documents[DocumentTypeCPFRG][0].Status = StatusRejected
	*clone.ReviewedAt = reviewedAt.Add(time.Hour)

	assert.Equal(t, StatusApproved, rec.Documents[DocumentTypeCPFRG][0].Status)
	assert.Equal(t, reviewedAt, *rec.ReviewedAt)
}

func TestDocumentCount(t *testing.T) {
	rec := &Record{Documents: map[DocumentType][]Document{
		DocumentTypeCPFRG: {{}, {}},
		DocumentTypeCNH:   {{}},
	}}
	assert.Equal(t, 3, rec.DocumentCount())
}
