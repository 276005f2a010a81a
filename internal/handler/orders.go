package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/suju-order/api/internal/middleware"
	"github.com/suju-order/api/internal/service"
	"github.com/suju-order/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	SubmitOrder(ctx context.Context, actor service.Actor, req service.SubmitOrderRequest) (*service.SubmitOrderResult, error)
	SubmitSalesOrder(ctx context.Context, actor service.Actor, req service.SubmitSalesOrderRequest) (*service.SubmitOrderResult, error)
}

// OrderMutator defines the mutation-service methods used here.
// Satisfied by *service.MutationService.
type OrderMutator interface {
	UpdateOrder(ctx context.Context, actor service.Actor, req service.UpdateOrderRequest) (*service.UpdateOrderResult, error)
	CancelOrder(ctx context.Context, actor service.Actor, headerID string) error
}

// OrderReader lists the caller's own order history.
// Satisfied by *service.StatusService.
type OrderReader interface {
	MyOrders(ctx context.Context, actor service.Actor, search string, limit, offset int32) ([]service.MyOrder, error)
}

// Notifier pushes board-refresh events to connected clients.
// Satisfied by *ws.Hub.
type Notifier interface {
	BroadcastToFacility(facility string, event ws.Event)
}

// NopNotifier drops events; used in tests.
type NopNotifier struct{}

func (NopNotifier) BroadcastToFacility(string, ws.Event) {}

// OrderHandler handles order submission, edit and history endpoints.
type OrderHandler struct {
	svc      OrderServicer
	mutator  OrderMutator
	reader   OrderReader
	notifier Notifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, mutator OrderMutator, reader OrderReader, notifier Notifier) *OrderHandler {
	return &OrderHandler{svc: svc, mutator: mutator, reader: reader, notifier: notifier}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Submit)
	r.Post("/sales", h.SubmitSales)
	r.Get("/mine", h.Mine)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type submitOrderRequest struct {
	CustomerID   string           `json:"customer_id"`
	DeliveryDate string           `json:"delivery_date"`
	Memo         string           `json:"memo"`
	Items        []orderItemInput `json:"items"`
}

type orderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type submitSalesOrderRequest struct {
	DeliveryDate string           `json:"delivery_date"`
	Memo         string           `json:"memo"`
	Items        []orderItemInput `json:"items"`
}

type submitOrderResponse struct {
	HeadersCreated int `json:"headers_created"`
}

type updateOrderRequest struct {
	DeliveryDate   *string             `json:"delivery_date"`
	Memo           *string             `json:"memo"`
	LineQuantities []lineQuantityInput `json:"line_quantities"`
}

type lineQuantityInput struct {
	LineID   string `json:"line_id"`
	Quantity int32  `json:"quantity"`
}

type updateOrderResponse struct {
	Updated bool `json:"updated"`
}

// --- Handlers ---

// Submit handles POST /orders.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.CustomerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
		return
	}
	if req.DeliveryDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delivery_date is required"})
		return
	}

	result, err := h.svc.SubmitOrder(r.Context(), actorFrom(claims), service.SubmitOrderRequest{
		CustomerID:   req.CustomerID,
		DeliveryDate: req.DeliveryDate,
		Memo:         req.Memo,
		Items:        toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, "submit order", err)
		return
	}

	h.notifyHeaders(result)
	writeJSON(w, http.StatusCreated, submitOrderResponse{HeadersCreated: result.HeadersCreated})
}

// SubmitSales handles POST /orders/sales.
func (h *OrderHandler) SubmitSales(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req submitSalesOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.DeliveryDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delivery_date is required"})
		return
	}

	result, err := h.svc.SubmitSalesOrder(r.Context(), actorFrom(claims), service.SubmitSalesOrderRequest{
		DeliveryDate: req.DeliveryDate,
		Memo:         req.Memo,
		Items:        toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, "submit sales order", err)
		return
	}

	h.notifyHeaders(result)
	writeJSON(w, http.StatusCreated, submitOrderResponse{HeadersCreated: result.HeadersCreated})
}

// Mine handles GET /orders/mine.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := parseInt32(r.URL.Query().Get("limit"), 20)
	offset := parseInt32(r.URL.Query().Get("offset"), 0)

	orders, err := h.reader.MyOrders(r.Context(), actorFrom(claims), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeServiceError(w, "list my orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "limit": limit, "offset": offset})
}

// Update handles PATCH /orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	quantities := make([]service.LineQuantity, len(req.LineQuantities))
	for i, lq := range req.LineQuantities {
		quantities[i] = service.LineQuantity{LineID: lq.LineID, Quantity: lq.Quantity}
	}

	result, err := h.mutator.UpdateOrder(r.Context(), actorFrom(claims), service.UpdateOrderRequest{
		HeaderID:       chi.URLParam(r, "id"),
		DeliveryDate:   req.DeliveryDate,
		Memo:           req.Memo,
		LineQuantities: quantities,
	})
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}

	if result.Updated {
		h.notifier.BroadcastToFacility(ws.RoomAll, ws.Event{Type: "order_updated"})
	}
	writeJSON(w, http.StatusOK, updateOrderResponse{Updated: result.Updated})
}

// Cancel handles DELETE /orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := h.mutator.CancelOrder(r.Context(), actorFrom(claims), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	h.notifier.BroadcastToFacility(ws.RoomAll, ws.Event{Type: "order_cancelled"})
	writeJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

func (h *OrderHandler) notifyHeaders(result *service.SubmitOrderResult) {
	for _, created := range result.Headers {
		h.notifier.BroadcastToFacility(created.Header.ProductionFacility, ws.Event{Type: "order_created"})
	}
}

func toServiceItems(items []orderItemInput) []service.SubmitOrderItem {
	out := make([]service.SubmitOrderItem, len(items))
	for i, item := range items {
		out[i] = service.SubmitOrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return out
}

func parseInt32(raw string, fallback int32) int32 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return fallback
	}
	return int32(n)
}
