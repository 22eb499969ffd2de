package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
	"qrorder/internal/service"
	"qrorder/internal/tokencodec"
)

// OrderFlow is satisfied by *service.PaymentCoordinator.
type OrderFlow interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	RetrySync(ctx context.Context, session, orderID string) (*service.CheckoutResult, error)
	GetOrCreatePayment(ctx context.Context, orderID string) (*service.PaymentView, error)
	CompleteQRIS(ctx context.Context, req service.CompleteRequest) (*service.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, paymentID string, success bool) (*model.Payment, error)
	AdvanceOrder(ctx context.Context, orderID string, to orderstate.Status) (*model.Order, error)
}

// OrderReader is satisfied by *service.OrderService.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, status orderstate.Status, limit int) ([]model.Order, error)
	GetSync(ctx context.Context, orderID string) (*model.POSSync, error)
}

type checkoutRequest struct {
	Name          string            `json:"name"`
	Phone         string            `json:"phone"`
	Email         string            `json:"email"`
	Note          string            `json:"note"`
	PaymentMethod orderstate.Method `json:"payment_method"`
	OrderNote     string            `json:"order_note"`
}

type checkoutFailure struct {
	*service.CheckoutResult
	Error string `json:"error"`
}

// CheckoutHandler places the session cart as an order for the table in the
// path. When the POS mirror fails the order is still reported as received,
// with 502 and sync_pending set.
func CheckoutHandler(flow OrderFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		res, err := flow.Checkout(r.Context(), service.CheckoutRequest{
			Session:    cartSession(w, r),
			TableParam: tableParam(r),
			Customer:   tokencodec.Customer{Name: req.Name, Phone: req.Phone, Email: req.Email, Note: req.Note},
			Method:     req.PaymentMethod,
			OrderNote:  req.OrderNote,
		})
		writeCheckoutResult(w, http.StatusCreated, res, err)
	}
}

// RetrySyncHandler re-sends a stored CASHIER order to the POS.
func RetrySyncHandler(flow OrderFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := flow.RetrySync(r.Context(), cartSession(w, r), chi.URLParam(r, "orderID"))
		writeCheckoutResult(w, http.StatusOK, res, err)
	}
}

func writeCheckoutResult(w http.ResponseWriter, status int, res *service.CheckoutResult, err error) {
	var syncErr *service.POSSyncError
	switch {
	case err == nil:
		writeJSON(w, status, res)
	case res != nil && errors.As(err, &syncErr):
		writeJSON(w, http.StatusBadGateway, checkoutFailure{CheckoutResult: res, Error: "order received, POS sync failed: " + syncErr.Error()})
	default:
		writeError(w, err)
	}
}

type orderView struct {
	Order  *model.Order        `json:"order"`
	Stages orderstate.Stages   `json:"stages"`
	Next   []orderstate.Status `json:"next,omitempty"`
	Sync   *model.POSSync      `json:"sync,omitempty"`
}

func newOrderView(o *model.Order, sync *model.POSSync) orderView {
	return orderView{
		Order:  o,
		Stages: orderstate.StagesOf(o.Status, o.PaymentConfirmed),
		Next:   orderstate.Next(o.Status, o.PaymentMethod),
		Sync:   sync,
	}
}

func GetOrderHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "orderID")

		o, err := orders.GetOrder(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		sync, err := orders.GetSync(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderView(o, sync))
	}
}

// PaymentHandler returns the QRIS payment of an order, creating it on first visit.
func PaymentHandler(flow OrderFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := flow.GetOrCreatePayment(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if view.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, view)
	}
}

type completeRequest struct {
	Table string `json:"table"`
	Email string `json:"email"`
}

// CompletePaymentHandler is the customer's "Selesai" action on the QRIS screen.
func CompletePaymentHandler(flow OrderFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		res, err := flow.CompleteQRIS(r.Context(), service.CompleteRequest{
			OrderID:    chi.URLParam(r, "orderID"),
			TableParam: []string{req.Table},
			Email:      req.Email,
		})
		writeCheckoutResult(w, http.StatusOK, res, err)
	}
}
