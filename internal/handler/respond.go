package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"qrorder/internal/cart"
	"qrorder/internal/orderstate"
	"qrorder/internal/ratelimit"
	"qrorder/internal/service"
	"qrorder/internal/tokencodec"
)

var errProductUnavailable = errors.New("product is not available")

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var tableErr *service.InvalidTableError
	var syncErr *service.POSSyncError

	switch {
	case errors.As(err, &tableErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid table", Reason: string(tableErr.Reason)})
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		writeErrorMessage(w, http.StatusTooManyRequests, "too many requests, try again in a minute")
	case errors.Is(err, tokencodec.ErrConfiguration):
		slog.Error("encryption key not configured")
		writeErrorMessage(w, http.StatusInternalServerError, "encryption is not configured on the server")
	case errors.As(err, &syncErr):
		writeErrorMessage(w, http.StatusBadGateway, syncErr.Error())
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrTableMismatch),
		errors.Is(err, cart.ErrNoteTooLong),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, cart.ErrTableNotBound):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tokencodec.ErrMalformedToken),
		errors.Is(err, tokencodec.ErrInvalidIVLength),
		errors.Is(err, tokencodec.ErrFormat),
		errors.Is(err, tokencodec.ErrDecryption):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orderstate.ErrInvalidTransition),
		errors.Is(err, service.ErrStaleStatus),
		errors.Is(err, service.ErrPaymentFinalized),
		errors.Is(err, service.ErrWrongPaymentMethod),
		errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, errProductUnavailable):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
	return dec.Decode(v)
}
