package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/suju-order/api/internal/enum"
	"github.com/suju-order/api/internal/handler"
	"github.com/suju-order/api/internal/middleware"
	"github.com/suju-order/api/internal/service"
)

// --- Mocks ---

type mockFulfiller struct {
	completeFn     func(ctx context.Context, actor service.Actor, lineID string, quantity *int32) error
	bulkCompleteFn func(ctx context.Context, actor service.Actor, lineIDs []string) (*service.BulkCompleteResult, error)
}

func (m *mockFulfiller) CompleteLine(ctx context.Context, actor service.Actor, lineID string, quantity *int32) error {
	return m.completeFn(ctx, actor, lineID, quantity)
}

func (m *mockFulfiller) BulkCompleteLines(ctx context.Context, actor service.Actor, lineIDs []string) (*service.BulkCompleteResult, error) {
	return m.bulkCompleteFn(ctx, actor, lineIDs)
}

type mockLineMutator struct {
	updateLineFn func(ctx context.Context, actor service.Actor, req service.UpdateLineRequest) error
	bulkUpdateFn func(ctx context.Context, actor service.Actor, req service.BulkUpdateRequest) (*service.BulkUpdateResult, error)
}

func (m *mockLineMutator) UpdateLine(ctx context.Context, actor service.Actor, req service.UpdateLineRequest) error {
	return m.updateLineFn(ctx, actor, req)
}

func (m *mockLineMutator) BulkUpdateLines(ctx context.Context, actor service.Actor, req service.BulkUpdateRequest) (*service.BulkUpdateResult, error) {
	return m.bulkUpdateFn(ctx, actor, req)
}

type mockBoardReader struct {
	queryStatusFn    func(ctx context.Context, q service.StatusQuery) (*service.StatusResult, error)
	pendingSummaryFn func(ctx context.Context, q service.PendingSummaryQuery) ([]service.PendingSummaryItem, error)
	lineLogsFn       func(ctx context.Context, lineID string) ([]service.LineLog, error)
}

func (m *mockBoardReader) QueryStatus(ctx context.Context, q service.StatusQuery) (*service.StatusResult, error) {
	return m.queryStatusFn(ctx, q)
}

func (m *mockBoardReader) PendingSummary(ctx context.Context, q service.PendingSummaryQuery) ([]service.PendingSummaryItem, error) {
	return m.pendingSummaryFn(ctx, q)
}

func (m *mockBoardReader) LineLogs(ctx context.Context, lineID string) ([]service.LineLog, error) {
	return m.lineLogsFn(ctx, lineID)
}

func setupProductionRouter(fulfiller handler.Fulfiller, mutator handler.LineMutator, reader handler.BoardReader, notifier handler.Notifier) *chi.Mux {
	if notifier == nil {
		notifier = handler.NopNotifier{}
	}
	h := handler.NewProductionHandler(fulfiller, mutator, reader, notifier)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/production", h.RegisterRoutes)
	return r
}

// --- Board query tests ---

func TestProductionStatus_PassesQueryParams(t *testing.T) {
	reader := &mockBoardReader{
		queryStatusFn: func(ctx context.Context, q service.StatusQuery) (*service.StatusResult, error) {
			if q.Search != "훈제란" {
				t.Errorf("search: got %q, want 훈제란", q.Search)
			}
			if q.Date != "2026-09-05" {
				t.Errorf("date: got %q, want 2026-09-05", q.Date)
			}
			if q.Facility != "A동" {
				t.Errorf("facility: got %q, want A동", q.Facility)
			}
			if q.Status != "incomplete" {
				t.Errorf("status: got %q, want incomplete", q.Status)
			}
			if q.GroupBy != service.GroupByCustomer {
				t.Errorf("group_by: got %q, want customer", q.GroupBy)
			}
			if q.SortBy != service.SortByProduct || !q.SortDesc {
				t.Errorf("sort: got %q desc=%v, want product/true", q.SortBy, q.SortDesc)
			}
			return &service.StatusResult{}, nil
		},
	}
	router := setupProductionRouter(nil, nil, reader, nil)

	path := "/production/status?q=훈제란&date=2026-09-05&facility=A동&status=incomplete&group_by=customer&sort=product&dir=desc"
	rr := doAuthRequest(t, router, "GET", path, nil, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestProductionStatus_InvalidDate(t *testing.T) {
	reader := &mockBoardReader{
		queryStatusFn: func(ctx context.Context, q service.StatusQuery) (*service.StatusResult, error) {
			return nil, service.ErrInvalidDate
		},
	}
	router := setupProductionRouter(nil, nil, reader, nil)

	rr := doAuthRequest(t, router, "GET", "/production/status?date=bogus", nil, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPendingSummary_PassesQueryParams(t *testing.T) {
	reader := &mockBoardReader{
		pendingSummaryFn: func(ctx context.Context, q service.PendingSummaryQuery) ([]service.PendingSummaryItem, error) {
			if q.DateFrom != "2026-09-01" || q.DateTo != "2026-09-07" {
				t.Errorf("date range: got %q..%q", q.DateFrom, q.DateTo)
			}
			if q.Facility != "B동" {
				t.Errorf("facility: got %q, want B동", q.Facility)
			}
			return []service.PendingSummaryItem{
				{Date: "2026-09-03", ProductName: "반숙란 10구", TotalQuantity: 40, LineCount: 3},
			}, nil
		},
	}
	router := setupProductionRouter(nil, nil, reader, nil)

	rr := doAuthRequest(t, router, "GET", "/production/pending-summary?date_from=2026-09-01&date_to=2026-09-07&facility=B동", nil, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["total_quantity"] != float64(40) {
		t.Errorf("total_quantity: got %v, want 40", item["total_quantity"])
	}
}

func TestLineLogs_HappyPath(t *testing.T) {
	lineID := uuid.New()
	reader := &mockBoardReader{
		lineLogsFn: func(ctx context.Context, id string) ([]service.LineLog, error) {
			if id != lineID.String() {
				t.Errorf("line ID: got %v, want %v", id, lineID)
			}
			return []service.LineLog{
				{ID: uuid.New(), ChangeType: enum.ChangeQuantity, Description: "10 → 12", CreatedAt: time.Now()},
			}, nil
		},
	}
	router := setupProductionRouter(nil, nil, reader, nil)

	rr := doAuthRequest(t, router, "GET", "/production/lines/"+lineID.String()+"/logs", nil, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	logs := resp["logs"].([]interface{})
	if len(logs) != 1 {
		t.Fatalf("logs: got %d, want 1", len(logs))
	}
	if logs[0].(map[string]interface{})["change_type"] != enum.ChangeQuantity {
		t.Errorf("change_type: got %v, want %s", logs[0], enum.ChangeQuantity)
	}
}

// --- Completion tests ---

func TestCompleteLine_NoBody(t *testing.T) {
	lineID := uuid.New()
	fulfiller := &mockFulfiller{
		completeFn: func(ctx context.Context, actor service.Actor, id string, quantity *int32) error {
			if id != lineID.String() {
				t.Errorf("line ID: got %v, want %v", id, lineID)
			}
			if quantity != nil {
				t.Errorf("quantity: got %v, want nil", *quantity)
			}
			return nil
		},
	}
	notifier := &recordingNotifier{}
	router := setupProductionRouter(fulfiller, nil, nil, notifier)

	rr := doAuthRequest(t, router, "POST", "/production/lines/"+lineID.String()+"/complete", nil, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(notifier.events) != 1 || notifier.events[0].event.Type != "line_completed" {
		t.Errorf("expected one line_completed broadcast, got %v", notifier.events)
	}
}

func TestCompleteLine_WithQuantity(t *testing.T) {
	fulfiller := &mockFulfiller{
		completeFn: func(ctx context.Context, actor service.Actor, id string, quantity *int32) error {
			if quantity == nil || *quantity != 7 {
				t.Errorf("quantity: got %v, want 7", quantity)
			}
			return nil
		},
	}
	router := setupProductionRouter(fulfiller, nil, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/production/lines/"+uuid.New().String()+"/complete", map[string]interface{}{
		"quantity": 7,
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestCompleteLine_Forbidden(t *testing.T) {
	fulfiller := &mockFulfiller{
		completeFn: func(ctx context.Context, actor service.Actor, id string, quantity *int32) error {
			return service.ErrForbidden
		},
	}
	router := setupProductionRouter(fulfiller, nil, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/production/lines/"+uuid.New().String()+"/complete", nil, orderClaims(enum.RoleSales))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestCompleteLine_NotFound(t *testing.T) {
	fulfiller := &mockFulfiller{
		completeFn: func(ctx context.Context, actor service.Actor, id string, quantity *int32) error {
			return service.ErrLineNotFound
		},
	}
	router := setupProductionRouter(fulfiller, nil, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/production/lines/"+uuid.New().String()+"/complete", nil, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestBulkComplete_HappyPath(t *testing.T) {
	ids := []string{uuid.New().String(), uuid.New().String()}
	fulfiller := &mockFulfiller{
		bulkCompleteFn: func(ctx context.Context, actor service.Actor, lineIDs []string) (*service.BulkCompleteResult, error) {
			if len(lineIDs) != 2 {
				t.Errorf("line IDs: got %d, want 2", len(lineIDs))
			}
			return &service.BulkCompleteResult{CompletedCount: 2}, nil
		},
	}
	notifier := &recordingNotifier{}
	router := setupProductionRouter(fulfiller, nil, nil, notifier)

	rr := doAuthRequest(t, router, "POST", "/production/lines/bulk-complete", map[string]interface{}{
		"ids": ids,
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["completed_count"] != float64(2) {
		t.Errorf("completed_count: got %v, want 2", resp["completed_count"])
	}
	if len(notifier.events) != 1 || notifier.events[0].event.Type != "lines_completed" {
		t.Errorf("expected one lines_completed broadcast, got %v", notifier.events)
	}
}

func TestBulkComplete_EmptySelection(t *testing.T) {
	fulfiller := &mockFulfiller{
		bulkCompleteFn: func(ctx context.Context, actor service.Actor, lineIDs []string) (*service.BulkCompleteResult, error) {
			return nil, service.ErrNoLinesSelected
		},
	}
	router := setupProductionRouter(fulfiller, nil, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/production/lines/bulk-complete", map[string]interface{}{
		"ids": []string{},
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Line edit tests ---

func TestBulkUpdate_PassesFields(t *testing.T) {
	ids := []string{uuid.New().String(), uuid.New().String(), uuid.New().String()}
	mutator := &mockLineMutator{
		bulkUpdateFn: func(ctx context.Context, actor service.Actor, req service.BulkUpdateRequest) (*service.BulkUpdateResult, error) {
			if len(req.LineIDs) != 3 {
				t.Errorf("line IDs: got %d, want 3", len(req.LineIDs))
			}
			if req.DeliveryDate == nil || *req.DeliveryDate != "2026-09-15" {
				t.Errorf("delivery_date: got %v, want 2026-09-15", req.DeliveryDate)
			}
			if req.Facility == nil || *req.Facility != "C동" {
				t.Errorf("facility: got %v, want C동", req.Facility)
			}
			return &service.BulkUpdateResult{UpdatedCount: 3}, nil
		},
	}
	notifier := &recordingNotifier{}
	router := setupProductionRouter(nil, mutator, nil, notifier)

	rr := doAuthRequest(t, router, "POST", "/production/lines/bulk-update", map[string]interface{}{
		"ids":                 ids,
		"delivery_date":       "2026-09-15",
		"production_facility": "C동",
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["updated_count"] != float64(3) {
		t.Errorf("updated_count: got %v, want 3", resp["updated_count"])
	}
	if len(notifier.events) != 1 || notifier.events[0].event.Type != "lines_updated" {
		t.Errorf("expected one lines_updated broadcast, got %v", notifier.events)
	}
}

func TestBulkUpdate_NothingToChange(t *testing.T) {
	mutator := &mockLineMutator{
		bulkUpdateFn: func(ctx context.Context, actor service.Actor, req service.BulkUpdateRequest) (*service.BulkUpdateResult, error) {
			return nil, service.ErrNoChanges
		},
	}
	router := setupProductionRouter(nil, mutator, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/production/lines/bulk-update", map[string]interface{}{
		"ids": []string{uuid.New().String()},
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateLine_PassesFields(t *testing.T) {
	lineID := uuid.New()
	mutator := &mockLineMutator{
		updateLineFn: func(ctx context.Context, actor service.Actor, req service.UpdateLineRequest) error {
			if req.LineID != lineID.String() {
				t.Errorf("line ID: got %v, want %v", req.LineID, lineID)
			}
			if req.FulfilledQuantity == nil || *req.FulfilledQuantity != 8 {
				t.Errorf("fulfilled_quantity: got %v, want 8", req.FulfilledQuantity)
			}
			if req.Facility == nil || *req.Facility != "B동" {
				t.Errorf("facility: got %v, want B동", req.Facility)
			}
			return nil
		},
	}
	notifier := &recordingNotifier{}
	router := setupProductionRouter(nil, mutator, nil, notifier)

	rr := doAuthRequest(t, router, "PATCH", "/production/lines/"+lineID.String(), map[string]interface{}{
		"fulfilled_quantity":  8,
		"production_facility": "B동",
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(notifier.events) != 1 || notifier.events[0].event.Type != "line_updated" {
		t.Errorf("expected one line_updated broadcast, got %v", notifier.events)
	}
}

func TestUpdateLine_NotFound(t *testing.T) {
	mutator := &mockLineMutator{
		updateLineFn: func(ctx context.Context, actor service.Actor, req service.UpdateLineRequest) error {
			return service.ErrLineNotFound
		},
	}
	router := setupProductionRouter(nil, mutator, nil, nil)

	rr := doAuthRequest(t, router, "PATCH", "/production/lines/"+uuid.New().String(), map[string]interface{}{
		"fulfilled_quantity": 1,
	}, orderClaims(enum.RoleProduction))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
