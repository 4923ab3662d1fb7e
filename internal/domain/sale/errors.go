package sale

import (
	"errors"
	"fmt"
)

// Code is the stable reason code surfaced to callers.
type Code string

const (
	CodeInvalidQuantity   Code = "invalid_quantity"
	CodeProductNotFound   Code = "product_not_found"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeConflictExhausted Code = "conflict_exhausted"
	CodePartialFailure    Code = "partial_failure"
	CodeTimeout           Code = "timeout"
	CodeUnavailable       Code = "unavailable"
	CodeInternal          Code = "internal"
)

var messages = map[Code]string{
	CodeInvalidQuantity:   "quantity must be a positive integer",
	CodeProductNotFound:   "product not found",
	CodeInsufficientStock: "not enough stock",
	CodeConflictExhausted: "product is busy, try again",
	CodePartialFailure:    "stock updated but sale record was not saved",
	CodeTimeout:           "sale timed out, stock unchanged",
	CodeUnavailable:       "store unavailable, try again",
}

var (
	ErrInvalidQuantity   = &Error{Code: CodeInvalidQuantity}
	ErrProductNotFound   = &Error{Code: CodeProductNotFound}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock}
	ErrConflictExhausted = &Error{Code: CodeConflictExhausted}
	ErrPartialFailure    = &Error{Code: CodePartialFailure}
	ErrTimeout           = &Error{Code: CodeTimeout}
	ErrUnavailable       = &Error{Code: CodeUnavailable}
)

// Error is the structured outcome of a rejected or failed sale.
type Error struct {
	Code      Code
	ProductID string
	// SaleID is set for partial failures so callers can reconcile.
	SaleID string
	Err    error
}

// NewError builds an Error for productID wrapping cause (which may be nil).
func NewError(code Code, productID string, cause error) *Error {
	return &Error{Code: code, ProductID: productID, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.ProductID != "" {
		msg = fmt.Sprintf("%s (product %s)", msg, e.ProductID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return string(e.Code) + ": " + msg
}

// Message is the human readable text for the code.
func (e *Error) Message() string {
	if m, ok := messages[e.Code]; ok {
		return m
	}
	return "internal error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so the package sentinels
// work with errors.Is regardless of product or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may retry the whole operation.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeConflictExhausted, CodeTimeout, CodeUnavailable:
		return true
	}
	return false
}

// CodeOf extracts the reason code from err. Nil yields "", anything that
// is not an *Error yields CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}
