package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"qrorder/internal/tablectx"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrTableMismatch      = errors.New("cart belongs to a different table")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentFinalized   = errors.New("payment already finalized")
	ErrWrongPaymentMethod = errors.New("operation not available for this payment method")
	ErrStaleStatus        = errors.New("order status changed concurrently")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// isID reports whether id can be a primary key. Anything else cannot match a
// row and would otherwise fail as a Postgres cast error.
func isID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// InvalidTableError reports why a table parameter was rejected.
type InvalidTableError struct {
	Reason tablectx.Reason
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table: %s", e.Reason)
}

// POSSyncError is returned when the POS backend could not be reached or answered
// with a non-success status. Local state already written stays as is.
type POSSyncError struct {
	Op         string
	StatusCode int
	POSStatus  string
	Message    string
	Err        error
}

func (e *POSSyncError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("pos %s: %v", e.Op, e.Err)
	case e.StatusCode != 0 && e.StatusCode != 200:
		return fmt.Sprintf("pos %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("pos %s: status %q: %s", e.Op, e.POSStatus, e.Message)
	}
}

func (e *POSSyncError) Unwrap() error { return e.Err }
