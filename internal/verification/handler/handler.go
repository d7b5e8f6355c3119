// Package handler exposes the verification workflow over HTTP for the ops
// dashboard.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"verifica/internal/audit"
	"verifica/internal/documents"
	"verifica/internal/verification"
	"verifica/internal/verification/reconcile"
	dErrors "verifica/pkg/domain-errors"
	"verifica/pkg/platform/httputil"
	"verifica/pkg/requestcontext"
)

// Service is the workflow surface the HTTP layer depends on.
type Service interface {
	Reconcile(ctx context.Context) (*reconcile.Result, error)
	ProviderUploads(ctx context.Context) ([]documents.ProviderDocuments, error)
	List(ctx context.Context, filter verification.Filter) ([]*verification.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*verification.Record, error)
	Stats(ctx context.Context) (verification.Stats, error)
	Approve(ctx context.Context, id uuid.UUID, reviewedBy string) (*verification.Record, error)
	Reject(ctx context.Context, id uuid.UUID, reason, reviewedBy string) (*verification.Record, error)
	ApproveDocument(ctx context.Context, id, documentID uuid.UUID) (*verification.Record, error)
	RejectDocument(ctx context.Context, id, documentID uuid.UUID) (*verification.Record, error)
	History(ctx context.Context, verificationID uuid.UUID) ([]audit.Entry, error)
	RecentHistory(ctx context.Context, limit int) ([]audit.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the verification endpoints. Callers attach auth middleware
// before mounting; every handler assumes a reviewer is present in context.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/history", h.RecentHistory)
	r.Get("/uploads", h.ProviderUploads)
	r.Post("/reconcile", h.Reconcile)

	r.Route("/{verificationID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/history", h.History)
		r.Post("/approve", h.Approve)
		r.Post("/reject", h.Reject)
		r.Post("/documents/{documentID}/approve", h.ApproveDocument)
		r.Post("/documents/{documentID}/reject", h.RejectDocument)
	})

	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logError(r, "list verifications", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Verifications: toRecordResponses(records),
		Count:         len(records),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logError(r, "compute stats", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) ProviderUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.service.ProviderUploads(r.Context())
	if err != nil {
		h.logError(r, "list provider uploads", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, uploadsResponse{
		Uploads: toUploadResponses(uploads),
		Count:   len(uploads),
	})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Reconcile(r.Context())
	if err != nil {
		h.logError(r, "reconcile", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reconcileResponse{
		Verifications: toRecordResponses(result.Records),
		Created:       result.Created,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "verificationID")
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "verificationID")
	if !ok {
		return
	}
	rec, err := h.service.Approve(r.Context(), id, requestcontext.ReviewerID(r.Context()))
	if err != nil {
		h.logError(r, "approve", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "verificationID")
	if !ok {
		return
	}
	req, ok := httputil.Decode[rejectRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.Reject(r.Context(), id, req.Reason, requestcontext.ReviewerID(r.Context()))
	if err != nil {
		h.logError(r, "reject", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
	h.documentDecision(w, r, h.service.ApproveDocument)
}

func (h *Handler) RejectDocument(w http.ResponseWriter, r *http.Request) {
	h.documentDecision(w, r, h.service.RejectDocument)
}

func (h *Handler) documentDecision(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id, documentID uuid.UUID) (*verification.Record, error),
) {
	id, ok := h.pathID(w, r, "verificationID")
	if !ok {
		return
	}
	documentID, ok := h.pathID(w, r, "documentID")
	if !ok {
		return
	}
	rec, err := apply(r.Context(), id, documentID)
	if err != nil {
		h.logError(r, "document decision", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "verificationID")
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{History: toHistoryResponses(entries)})
}

func (h *Handler) RecentHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
			return
		}
		limit = n
	}
	entries, err := h.service.RecentHistory(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{History: toHistoryResponses(entries)})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) logError(r *http.Request, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), op+" failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

func filterFromQuery(r *http.Request) (verification.Filter, error) {
	q := r.URL.Query()
	filter := verification.Filter{
		Status:       q.Get("status"),
		Search:       q.Get("search"),
		DocumentType: verification.DocumentType(q.Get("document_type")),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return verification.Filter{}, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a non-negative integer", name)
		}
		*dst = n
	}
	return filter, nil
}
