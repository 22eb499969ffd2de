package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
)

const defaultOrderListLimit = 100

// ListStaffOrdersHandler lists orders, newest first, optionally filtered by ?status=.
func ListStaffOrdersHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := orderstate.Status(strings.ToUpper(r.URL.Query().Get("status")))
		if status != "" && !status.Valid() {
			writeErrorMessage(w, http.StatusBadRequest, "unknown status")
			return
		}

		limit := defaultOrderListLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 {
				writeErrorMessage(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		list, err := orders.ListOrders(r.Context(), status, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if len(list) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		views := make([]orderView, 0, len(list))
		for i := range list {
			views = append(views, newOrderView(&list[i], nil))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

type statusRequest struct {
	Status orderstate.Status `json:"status"`
}

func UpdateOrderStatusHandler(flow OrderFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		to := orderstate.Status(strings.ToUpper(string(req.Status)))
		if !to.Valid() {
			writeErrorMessage(w, http.StatusBadRequest, "unknown status")
			return
		}

		o, err := flow.AdvanceOrder(r.Context(), chi.URLParam(r, "orderID"), to)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderView(o, nil))
	}
}

type confirmRequest struct {
	Success bool `json:"success"`
}

// ConfirmPaymentHandler records the outcome reported by the payment provider.
func ConfirmPaymentHandler(flow OrderFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		p, err := flow.ConfirmPayment(r.Context(), chi.URLParam(r, "paymentID"), req.Success)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Payment *model.Payment `json:"payment"`
		}{p})
	}
}
