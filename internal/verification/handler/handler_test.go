package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verifica/internal/audit"
	"verifica/internal/documents"
	"verifica/internal/verification"
	"verifica/internal/verification/reconcile"
	dErrors "verifica/pkg/domain-errors"
	"verifica/pkg/requestcontext"
)

// stubService records calls and returns canned results.
type stubService struct {
	record  *verification.Record
	stats   verification.Stats
	entries []audit.Entry
	uploads []documents.ProviderDocuments
	err     error

	lastFilter verification.Filter
	lastReason string
	lastBy     string
}

func (s *stubService) Reconcile(context.Context) (*reconcile.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &reconcile.Result{Records: []*verification.Record{s.record}, Created: 1}, nil
}

func (s *stubService) ProviderUploads(context.Context) ([]documents.ProviderDocuments, error) {
	return s.uploads, s.err
}

func (s *stubService) List(_ context.Context, filter verification.Filter) ([]*verification.Record, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return []*verification.Record{s.record}, nil
}

func (s *stubService) Get(context.Context, uuid.UUID) (*verification.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubService) Stats(context.Context) (verification.Stats, error) {
	return s.stats, s.err
}

func (s *stubService) Approve(_ context.Context, _ uuid.UUID, reviewedBy string) (*verification.Record, error) {
	s.lastBy = reviewedBy
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubService) Reject(_ context.Context, _ uuid.UUID, reason, reviewedBy string) (*verification.Record, error) {
	s.lastReason = reason
	s.lastBy = reviewedBy
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubService) ApproveDocument(context.Context, uuid.UUID, uuid.UUID) (*verification.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubService) RejectDocument(context.Context, uuid.UUID, uuid.UUID) (*verification.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubService) History(context.Context, uuid.UUID) ([]audit.Entry, error) {
	return s.entries, s.err
}

func (s *stubService) RecentHistory(context.Context, int) ([]audit.Entry, error) {
	return s.entries, s.err
}

type HandlerSuite struct {
	suite.Suite

	stub    *stubService
	handler http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.stub = &stubService{
		record: &verification.Record{
			ID:           uuid.New(),
			ProviderID:   "prov-1",
			ProviderName: "Ana Souza",
			Status:       verification.StatusPending,
			SubmittedAt:  now,
		},
		stats: verification.Stats{Total: 3, Pending: 1, Approved: 2},
	}
	s.handler = New(s.stub, slog.New(slog.DiscardHandler)).Routes()
}

func (s *HandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(requestcontext.WithReviewerID(req.Context(), "op-ana"))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *HandlerSuite) TestListPassesFilter() {
	rr := s.do(http.MethodGet, "/?status=pending&search=ana&document_type=cnh&limit=10&offset=20", "")

	s.Equal(http.StatusOK, rr.Code)
	s.Equal(verification.Filter{
		Status:       "pending",
		Search:       "ana",
		DocumentType: verification.DocumentTypeCNH,
		Limit:        10,
		Offset:       20,
	}, s.stub.lastFilter)

	var body struct {
		Count int `json:"count"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal(1, body.Count)
}

func (s *HandlerSuite) TestListRejectsBadPaging() {
	rr := s.do(http.MethodGet, "/?limit=abc", "")
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestStats() {
	rr := s.do(http.MethodGet, "/stats", "")
	s.Equal(http.StatusOK, rr.Code)

	var stats verification.Stats
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &stats))
	s.Equal(3, stats.Total)
}

func (s *HandlerSuite) TestApprovePassesReviewer() {
	rr := s.do(http.MethodPost, "/"+s.stub.record.ID.String()+"/approve", "")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("op-ana", s.stub.lastBy)
}

func (s *HandlerSuite) TestApproveNotEligible() {
	s.stub.err = dErrors.New(dErrors.CodeNotEligible, "cannot approve: no approved document of type cpf_rg")

	rr := s.do(http.MethodPost, "/"+s.stub.record.ID.String()+"/approve", "")
	s.Equal(http.StatusUnprocessableEntity, rr.Code)

	var body map[string]string
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("not_eligible", body["error"])
	s.Contains(body["error_description"], "cpf_rg")
}

func (s *HandlerSuite) TestApproveInvalidTransition() {
	s.stub.err = dErrors.New(dErrors.CodeInvalidTransition, "cannot approve: record has already been reviewed")

	rr := s.do(http.MethodPost, "/"+s.stub.record.ID.String()+"/approve", "")
	s.Equal(http.StatusConflict, rr.Code)
}

func (s *HandlerSuite) TestApproveBadID() {
	rr := s.do(http.MethodPost, "/not-a-uuid/approve", "")
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestRejectPassesReason() {
	rr := s.do(http.MethodPost, "/"+s.stub.record.ID.String()+"/reject", `{"reason":"documento ilegivel"}`)
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("documento ilegivel", s.stub.lastReason)
}

func (s *HandlerSuite) TestRejectMalformedBody() {
	rr := s.do(http.MethodPost, "/"+s.stub.record.ID.String()+"/reject", `{"reason":`)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestDocumentDecision() {
	docID := uuid.New()
	rr := s.do(http.MethodPost, "/"+s.stub.record.ID.String()+"/documents/"+docID.String()+"/approve", "")
	s.Equal(http.StatusOK, rr.Code)
}

func (s *HandlerSuite) TestInternalErrorHidesDetail() {
	s.stub.err = dErrors.New(dErrors.CodeInternal, "pq: connection refused")

	rr := s.do(http.MethodGet, "/stats", "")
	s.Equal(http.StatusInternalServerError, rr.Code)

	var body map[string]string
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("internal_error", body["error"])
	s.Empty(body["error_description"])
}

func (s *HandlerSuite) TestProviderUploads() {
	uploaded := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	s.stub.uploads = []documents.ProviderDocuments{{
		ProviderID: "prov-2",
		Documents: map[verification.DocumentType][]verification.Document{
			verification.DocumentTypeCNH: {{ID: uuid.New(), Type: verification.DocumentTypeCNH, UploadedAt: uploaded}},
		},
		UploadedAt: uploaded,
	}}

	rr := s.do(http.MethodGet, "/uploads", "")
	s.Equal(http.StatusOK, rr.Code)

	var body struct {
		Uploads []struct {
			ProviderID    string `json:"provider_id"`
			DocumentCount int    `json:"document_count"`
		} `json:"uploads"`
		Count int `json:"count"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal(1, body.Count)
	s.Require().Len(body.Uploads, 1)
	s.Equal("prov-2", body.Uploads[0].ProviderID)
	s.Equal(1, body.Uploads[0].DocumentCount)
}

func (s *HandlerSuite) TestHistory() {
	s.stub.entries = []audit.Entry{{
		ID:             uuid.New(),
		VerificationID: s.stub.record.ID,
		ProviderID:     "prov-1",
		Action:         audit.ActionApproved,
		ReviewedBy:     "op-ana",
	}}

	rr := s.do(http.MethodGet, "/"+s.stub.record.ID.String()+"/history", "")
	s.Equal(http.StatusOK, rr.Code)

	var body struct {
		History []struct {
			Action string `json:"action"`
		} `json:"history"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Require().Len(body.History, 1)
	s.Equal("approved", body.History[0].Action)
}
