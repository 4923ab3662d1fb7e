package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/gramstore/internal/command"
	"github.com/example/gramstore/internal/domain/product"
	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/logger"
)

// retryAfterSeconds is advertised when a product stayed contended.
const retryAfterSeconds = 1

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	SaleID  string `json:"sale_id,omitempty"`
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

// saleStatus maps a sale outcome code to its HTTP status.
func saleStatus(code sale.Code) int {
	switch code {
	case sale.CodeInvalidQuantity:
		return http.StatusBadRequest
	case sale.CodeProductNotFound:
		return http.StatusNotFound
	case sale.CodeInsufficientStock:
		return http.StatusConflict
	case sale.CodeConflictExhausted, sale.CodeUnavailable:
		return http.StatusServiceUnavailable
	case sale.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondSaleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	var se *sale.Error
	if !errors.As(err, &se) {
		log.Error("sale failed", "error", err)
		respondError(w, http.StatusInternalServerError, string(sale.CodeInternal), "internal error")
		return
	}

	status := saleStatus(se.Code)
	if se.Code == sale.CodeConflictExhausted {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	if status >= http.StatusInternalServerError {
		log.Error("sale failed", "code", se.Code, "product_id", se.ProductID, "sale_id", se.SaleID, "error", se.Err)
	}
	respondJSON(w, status, errorResponse{
		Error:   string(se.Code),
		Message: se.Message(),
		SaleID:  se.SaleID,
	})
}

// respondCatalogError handles errors of the catalog and query paths.
func respondCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, product.ErrInvalidName),
		errors.Is(err, product.ErrInvalidOwner),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, product.ErrInvalidMinStock),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidExpiry),
		errors.Is(err, command.ErrVersionRequired):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		respondError(w, http.StatusConflict, "version_conflict", "product was changed by another request")
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, store.ErrNegativeStock):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, string(sale.CodeInternal), "internal error")
	}
}
