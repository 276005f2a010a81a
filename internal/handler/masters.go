package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
)

// MasterStore defines the database methods needed by master-data lookups.
// Satisfied by *database.Queries; narrow interface for testability.
type MasterStore interface {
	ListActiveCustomers(ctx context.Context, search pgtype.Text) ([]database.Customer, error)
	ListActiveProducts(ctx context.Context, search pgtype.Text) ([]database.Product, error)
}

// MasterHandler serves the customer and product lookups used by the order
// forms.
type MasterHandler struct {
	store MasterStore
}

// NewMasterHandler creates a new MasterHandler.
func NewMasterHandler(store MasterStore) *MasterHandler {
	return &MasterHandler{store: store}
}

// RegisterRoutes registers master-data endpoints on the given Chi router.
func (h *MasterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers", h.ListCustomers)
	r.Get("/products", h.ListProducts)
	r.Get("/facilities", h.ListFacilities)
}

type customerResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	BusinessID *string   `json:"business_id"`
}

type productResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Sku                string    `json:"sku"`
	UnitPrice          string    `json:"unit_price"`
	SortOrder          int32     `json:"sort_order"`
	ProductionFacility *string   `json:"production_facility"`
}

// ListCustomers handles GET /masters/customers.
func (h *MasterHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	search := pgtype.Text{}
	if q := r.URL.Query().Get("q"); q != "" {
		search = pgtype.Text{String: q, Valid: true}
	}

	customers, err := h.store.ListActiveCustomers(r.Context(), search)
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]customerResponse, len(customers))
	for i, c := range customers {
		out[i] = customerResponse{ID: c.ID, Name: c.Name}
		if c.BusinessID.Valid {
			out[i].BusinessID = &c.BusinessID.String
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": out})
}

// ListProducts handles GET /masters/products.
func (h *MasterHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	search := pgtype.Text{}
	if q := r.URL.Query().Get("q"); q != "" {
		search = pgtype.Text{String: q, Valid: true}
	}

	products, err := h.store.ListActiveProducts(r.Context(), search)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = productResponse{
			ID:        p.ID,
			Name:      p.Name,
			Sku:       p.Sku,
			UnitPrice: numericString(p.UnitPrice),
			SortOrder: p.SortOrder,
		}
		if p.ProductionFacility.Valid {
			out[i].ProductionFacility = &p.ProductionFacility.String
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": out})
}

// ListFacilities handles GET /masters/facilities.
func (h *MasterHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"facilities": enum.FacilityList})
}

func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0"
	}
	return d.String()
}
