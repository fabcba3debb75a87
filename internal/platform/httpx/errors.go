// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Storage-engine details never reach the client; unexpected errors
// surface as a bare 500 and are logged at the handler.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation   *shared.ValidationError
		notFound     *shared.NotFoundError
		conflict     *shared.ConflictError
		insufficient *shared.InsufficientStockError
		overReceipt  *shared.OverReceiptError
		fieldErrs    validator.ValidationErrors
	)
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &fieldErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs.Error())
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", conflict.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.ErrIdempotencyConflict.Error())
	case errors.As(err, &insufficient):
		Problem(w, http.StatusConflict, "Insufficient Stock", insufficient.Error())
	case errors.As(err, &overReceipt):
		Problem(w, http.StatusConflict, "Over Receipt", overReceipt.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
