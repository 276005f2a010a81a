package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/suju-order/api/internal/middleware"
	"github.com/suju-order/api/internal/service"
	"github.com/suju-order/api/internal/ws"
)

// Fulfiller defines the fulfillment-service methods used here.
// Satisfied by *service.FulfillmentService.
type Fulfiller interface {
	CompleteLine(ctx context.Context, actor service.Actor, lineID string, quantity *int32) error
	BulkCompleteLines(ctx context.Context, actor service.Actor, lineIDs []string) (*service.BulkCompleteResult, error)
}

// LineMutator defines the mutation-service methods for production edits.
// Satisfied by *service.MutationService.
type LineMutator interface {
	UpdateLine(ctx context.Context, actor service.Actor, req service.UpdateLineRequest) error
	BulkUpdateLines(ctx context.Context, actor service.Actor, req service.BulkUpdateRequest) (*service.BulkUpdateResult, error)
}

// BoardReader defines the read-only board queries.
// Satisfied by *service.StatusService.
type BoardReader interface {
	QueryStatus(ctx context.Context, q service.StatusQuery) (*service.StatusResult, error)
	PendingSummary(ctx context.Context, q service.PendingSummaryQuery) ([]service.PendingSummaryItem, error)
	LineLogs(ctx context.Context, lineID string) ([]service.LineLog, error)
}

// ProductionHandler handles the production board and fulfillment endpoints.
type ProductionHandler struct {
	fulfiller Fulfiller
	mutator   LineMutator
	reader    BoardReader
	notifier  Notifier
}

// NewProductionHandler creates a new ProductionHandler.
func NewProductionHandler(fulfiller Fulfiller, mutator LineMutator, reader BoardReader, notifier Notifier) *ProductionHandler {
	return &ProductionHandler{fulfiller: fulfiller, mutator: mutator, reader: reader, notifier: notifier}
}

// RegisterRoutes registers production endpoints on the given Chi router.
func (h *ProductionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/pending-summary", h.PendingSummary)
	r.Get("/lines/{id}/logs", h.LineLogs)
	r.Post("/lines/{id}/complete", h.Complete)
	r.Post("/lines/bulk-complete", h.BulkComplete)
	r.Post("/lines/bulk-update", h.BulkUpdate)
	r.Patch("/lines/{id}", h.UpdateLine)
}

// --- Request types ---

type completeLineRequest struct {
	Quantity *int32 `json:"quantity"`
}

type bulkCompleteRequest struct {
	IDs []string `json:"ids"`
}

type bulkUpdateRequest struct {
	IDs          []string `json:"ids"`
	DeliveryDate *string  `json:"delivery_date"`
	Facility     *string  `json:"production_facility"`
}

type updateLineRequest struct {
	FulfilledQuantity *int32  `json:"fulfilled_quantity"`
	Memo              *string `json:"memo"`
	Facility          *string `json:"production_facility"`
	DeliveryDate      *string `json:"delivery_date"`
}

// --- Handlers ---

// Status handles GET /production/status.
func (h *ProductionHandler) Status(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.reader.QueryStatus(r.Context(), service.StatusQuery{
		Search:   query.Get("q"),
		Date:     query.Get("date"),
		Facility: query.Get("facility"),
		Status:   query.Get("status"),
		GroupBy:  query.Get("group_by"),
		SortBy:   query.Get("sort"),
		SortDesc: query.Get("dir") == "desc",
	})
	if err != nil {
		writeServiceError(w, "query production status", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PendingSummary handles GET /production/pending-summary.
func (h *ProductionHandler) PendingSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items, err := h.reader.PendingSummary(r.Context(), service.PendingSummaryQuery{
		Date:     query.Get("date"),
		DateFrom: query.Get("date_from"),
		DateTo:   query.Get("date_to"),
		Facility: query.Get("facility"),
	})
	if err != nil {
		writeServiceError(w, "pending summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// LineLogs handles GET /production/lines/{id}/logs.
func (h *ProductionHandler) LineLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.reader.LineLogs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "list line logs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// Complete handles POST /production/lines/{id}/complete.
func (h *ProductionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req completeLineRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	if err := h.fulfiller.CompleteLine(r.Context(), actorFrom(claims), chi.URLParam(r, "id"), req.Quantity); err != nil {
		writeServiceError(w, "complete line", err)
		return
	}

	h.notifier.BroadcastToFacility(ws.RoomAll, ws.Event{Type: "line_completed"})
	writeJSON(w, http.StatusOK, map[string]string{"message": "line completed"})
}

// BulkComplete handles POST /production/lines/bulk-complete.
func (h *ProductionHandler) BulkComplete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req bulkCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.fulfiller.BulkCompleteLines(r.Context(), actorFrom(claims), req.IDs)
	if err != nil {
		writeServiceError(w, "bulk complete lines", err)
		return
	}

	h.notifier.BroadcastToFacility(ws.RoomAll, ws.Event{Type: "lines_completed"})
	writeJSON(w, http.StatusOK, map[string]int{"completed_count": result.CompletedCount})
}

// BulkUpdate handles POST /production/lines/bulk-update.
func (h *ProductionHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.mutator.BulkUpdateLines(r.Context(), actorFrom(claims), service.BulkUpdateRequest{
		LineIDs:      req.IDs,
		DeliveryDate: req.DeliveryDate,
		Facility:     req.Facility,
	})
	if err != nil {
		writeServiceError(w, "bulk update lines", err)
		return
	}

	h.notifier.BroadcastToFacility(ws.RoomAll, ws.Event{Type: "lines_updated"})
	writeJSON(w, http.StatusOK, map[string]int{"updated_count": result.UpdatedCount})
}

// UpdateLine handles PATCH /production/lines/{id}.
func (h *ProductionHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := h.mutator.UpdateLine(r.Context(), actorFrom(claims), service.UpdateLineRequest{
		LineID:            chi.URLParam(r, "id"),
		FulfilledQuantity: req.FulfilledQuantity,
		Memo:              req.Memo,
		Facility:          req.Facility,
		DeliveryDate:      req.DeliveryDate,
	})
	if err != nil {
		writeServiceError(w, "update line", err)
		return
	}

	h.notifier.BroadcastToFacility(ws.RoomAll, ws.Event{Type: "line_updated"})
	writeJSON(w, http.StatusOK, map[string]string{"message": "line updated"})
}
