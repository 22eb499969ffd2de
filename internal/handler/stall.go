package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"qrorder/internal/service"
	"qrorder/internal/tablectx"
	"qrorder/internal/tokencodec"
)

// StallBackend is satisfied by *service.POSClient.
type StallBackend interface {
	Profile(ctx context.Context, tableToken string) (*service.StallProfile, error)
	ProductsByToken(ctx context.Context, tableToken string, page int) (json.RawMessage, error)
}

func stallToken(r *http.Request) (string, bool) {
	token := tablectx.Normalize(tableParam(r)...)
	return token, tokencodec.LooksLikeToken(token)
}

func StallProfileHandler(pos StallBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := stallToken(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid table", Reason: string(tablectx.ReasonMalformedToken)})
			return
		}

		profile, err := pos.Profile(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func StallProductsHandler(pos StallBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := stallToken(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid table", Reason: string(tablectx.ReasonMalformedToken)})
			return
		}

		page := 0
		if p := r.URL.Query().Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 {
				writeErrorMessage(w, http.StatusBadRequest, "invalid page")
				return
			}
			page = n
		}

		data, err := pos.ProductsByToken(r.Context(), token, page)
		if err != nil {
			writeError(w, err)
			return
		}

		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
