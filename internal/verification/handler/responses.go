package handler

import (
	"time"

	"github.com/google/uuid"

	"verifica/internal/audit"
	"verifica/internal/documents"
	"verifica/internal/verification"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

type listResponse struct {
	Verifications []recordResponse `json:"verifications"`
	Count         int              `json:"count"`
}

type reconcileResponse struct {
	Verifications []recordResponse `json:"verifications"`
	Created       int              `json:"created"`
}

type historyResponse struct {
	History []historyEntryResponse `json:"history"`
}

type uploadsResponse struct {
	Uploads []uploadResponse `json:"uploads"`
	Count   int              `json:"count"`
}

type uploadResponse struct {
	ProviderID    string                                                `json:"provider_id"`
	Documents     map[verification.DocumentType][]verification.Document `json:"documents"`
	DocumentCount int                                                   `json:"document_count"`
	UploadedAt    time.Time                                             `json:"uploaded_at"`
}

type recordResponse struct {
	ID              uuid.UUID                                             `json:"id"`
	ProviderID      string                                                `json:"provider_id"`
	ProviderName    string                                                `json:"provider_name"`
	ProviderEmail   string                                                `json:"provider_email,omitempty"`
	ProviderPhone   string                                                `json:"provider_phone,omitempty"`
	Status          verification.Status                                   `json:"status"`
	Documents       map[verification.DocumentType][]verification.Document `json:"documents"`
	DocumentCount   int                                                   `json:"document_count"`
	SubmittedAt     time.Time                                             `json:"submitted_at"`
	ReviewedAt      *time.Time                                            `json:"reviewed_at,omitempty"`
	ReviewedBy      string                                                `json:"reviewed_by,omitempty"`
	RejectionReason string                                                `json:"rejection_reason,omitempty"`
}

type historyEntryResponse struct {
	ID              uuid.UUID    `json:"id"`
	VerificationID  uuid.UUID    `json:"verification_id"`
	ProviderID      string       `json:"provider_id"`
	Action          audit.Action `json:"action"`
	ReviewedBy      string       `json:"reviewed_by"`
	ReviewedAt      time.Time    `json:"reviewed_at"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
}

func toRecordResponse(rec *verification.Record) recordResponse {
	docs := rec.Documents
	if docs == nil {
		docs = map[verification.DocumentType][]verification.Document{}
	}
	return recordResponse{
		ID:              rec.ID,
		ProviderID:      rec.ProviderID,
		ProviderName:    rec.ProviderName,
		ProviderEmail:   rec.ProviderEmail,
		ProviderPhone:   rec.ProviderPhone,
		Status:          rec.Status,
		Documents:       docs,
		DocumentCount:   rec.DocumentCount(),
		SubmittedAt:     rec.SubmittedAt,
		ReviewedAt:      rec.ReviewedAt,
		ReviewedBy:      rec.ReviewedBy,
		RejectionReason: rec.RejectionReason,
	}
}

func toRecordResponses(records []*verification.Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

func toUploadResponses(uploads []documents.ProviderDocuments) []uploadResponse {
	out := make([]uploadResponse, 0, len(uploads))
	for _, u := range uploads {
		count := 0
		for _, docs := range u.Documents {
			count += len(docs)
		}
		out = append(out, uploadResponse{
			ProviderID:    u.ProviderID,
			Documents:     u.Documents,
			DocumentCount: count,
			UploadedAt:    u.UploadedAt,
		})
	}
	return out
}

func toHistoryResponses(entries []audit.Entry) []historyEntryResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			ID:              e.ID,
			VerificationID:  e.VerificationID,
			ProviderID:      e.ProviderID,
			Action:          e.Action,
			ReviewedBy:      e.ReviewedBy,
			ReviewedAt:      e.ReviewedAt,
			RejectionReason: e.RejectionReason,
		})
	}
	return out
}
