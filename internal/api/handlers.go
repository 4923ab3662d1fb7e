package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/example/gramstore/internal/api/middleware"
	"github.com/example/gramstore/internal/command"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/query"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Sale Handlers

type sellRequest struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity"`
}

func (h *Handlers) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Fractional, missing or out-of-range quantities are all invalid_quantity.
	quantity, err := strconv.Atoi(req.Quantity.String())
	if err != nil {
		respondSaleError(w, r, sale.NewError(sale.CodeInvalidQuantity, req.ProductID, nil))
		return
	}

	ev, err := h.cmdHandler.Sell(r.Context(), command.Sell{
		OwnerID:   ownerID(r),
		ProductID: req.ProductID,
		Quantity:  quantity,
	})
	if err != nil {
		respondSaleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, ev)
}

func (h *Handlers) GetProductSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.queryHandler.ListSales(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handlers) GetSalesSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.queryHandler.GetSalesReport(r.Context(), ownerID(r))
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Analytics Handlers

func (h *Handlers) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	horizon := -1
	if raw := r.URL.Query().Get("horizon_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "horizon_days must be a non-negative integer")
			return
		}
		horizon = n
	}

	report, err := h.queryHandler.GetAnalytics(r.Context(), ownerID(r), horizon)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	cmd.OwnerID = ownerID(r)

	p, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(r.Context(), ownerID(r), r.URL.Query().Get("q"))
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryHandler.GetProduct(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	cmd.OwnerID = ownerID(r)
	cmd.ProductID = chi.URLParam(r, "id")

	p, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func ownerID(r *http.Request) string {
	return middleware.GetOwnerID(r.Context())
}
