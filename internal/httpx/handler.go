// Package httpx is the HTTP front door: batch submission plus the read-only
// query surface over records and their audit trails.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/intake"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

// Service is the intake surface the handlers call.
type Service interface {
	Submit(ctx context.Context, batch []intake.Submission) error
	List(ctx context.Context) ([]intake.Customer, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (intake.Customer, error)
	AuditTrail(ctx context.Context, uniqueID string) ([]*auditlog.Entry, error)
}

// Handler handles incoming HTTP requests for the transaction surface.
type Handler struct {
	service Service
}

// NewHandler initialises the handler with the intake service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// SubmitBatch receives a batch, persists it, and acknowledges intake. Stage
// outcomes are observable only through later status and audit queries.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req []SubmissionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "at least one record is required")
		return
	}

	batch := make([]intake.Submission, 0, len(req))
	for _, item := range req {
		if item.UniqueID == "" {
			writeError(w, http.StatusBadRequest, "unique_id_required", "")
			return
		}
		batch = append(batch, intake.Submission{UniqueID: item.UniqueID, Payload: item.Payload})
	}

	slog.InfoContext(r.Context(), "submitting batch", "count", len(batch))

	if err := h.service.Submit(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, "intake_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{Accepted: len(batch)})
}

// ListCustomers returns the current snapshot of all records.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	out := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		out[i] = CustomerResponse{UniqueID: c.UniqueID, Payload: c.Payload}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCustomer returns a single record by business key.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "id")
	if uniqueID == "" {
		writeError(w, http.StatusBadRequest, "unique_id_required", "")
		return
	}

	customer, err := h.service.GetByUniqueID(r.Context(), uniqueID)
	if errors.Is(err, record.ErrNotFound) {
		writeError(w, http.StatusNotFound, "customer_not_found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CustomerResponse{UniqueID: customer.UniqueID, Payload: customer.Payload})
}

// GetAuditTrail returns the ledger entries for a record in append order.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "id")
	if uniqueID == "" {
		writeError(w, http.StatusBadRequest, "unique_id_required", "")
		return
	}

	entries, err := h.service.AuditTrail(r.Context(), uniqueID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit_failed", err.Error())
		return
	}

	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			Stage:        string(e.Stage),
			Status:       string(e.Status),
			ErrorMessage: e.ErrorMessage,
			Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
