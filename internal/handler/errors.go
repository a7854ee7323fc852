package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/artisanedge/marketplace/internal/domain/cart"
	"github.com/artisanedge/marketplace/internal/domain/checkout"
	"github.com/artisanedge/marketplace/internal/domain/listing"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeDomainError maps domain errors to HTTP responses. Anything
// unrecognized is treated as an infrastructure failure: logged, and
// reported as a bare 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr      *listing.InsufficientStockError
		shippingErr   *checkout.IncompleteShippingError
		transitionErr *checkout.InvalidTransitionError
	)

	switch {
	case errors.Is(err, listing.ErrNotFound),
		errors.Is(err, checkout.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, listing.ErrInactive):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &shippingErr):
		writeError(w, http.StatusBadRequest, shippingErr.Error())

	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, stockErr.Error())

	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
