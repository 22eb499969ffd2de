package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"qrorder/internal/tablectx"
	"qrorder/internal/tokencodec"
)

type customerPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Note  string `json:"note,omitempty"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

func EncryptCustomerHandler(codec *tokencodec.Codec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req customerPayload
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		cust := tokencodec.Customer{
			Name:  strings.TrimSpace(req.Name),
			Phone: strings.TrimSpace(req.Phone),
			Email: strings.TrimSpace(req.Email),
			Note:  strings.TrimSpace(req.Note),
		}
		if cust.Name == "" || cust.Phone == "" || cust.Email == "" {
			writeErrorMessage(w, http.StatusBadRequest, "name, phone and email are required")
			return
		}

		token, err := codec.EncryptCustomer(cust)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, tokenPayload{Token: token})
	}
}

func DecryptCustomerHandler(codec *tokencodec.Codec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenPayload
		if err := decodeJSON(r, &req); err != nil || req.Token == "" {
			writeErrorMessage(w, http.StatusBadRequest, "token is required")
			return
		}

		cust, err := codec.DecryptCustomer(strings.TrimSpace(req.Token))
		if err != nil {
			if errors.Is(err, tokencodec.ErrConfiguration) {
				writeError(w, err)
				return
			}
			slog.Warn("customer token rejected", "error", err)
			writeErrorMessage(w, http.StatusBadRequest, "invalid customer token")
			return
		}

		writeJSON(w, http.StatusOK, customerPayload{Name: cust.Name, Phone: cust.Phone, Email: cust.Email, Note: cust.Note})
	}
}

type decryptTokenResponse struct {
	TableNumber int    `json:"tableNumber"`
	StallID     string `json:"stallId"`
	Decrypted   string `json:"decrypted"`
}

// DecryptTokenHandler serves POST {token} and GET ?token=. Error bodies carry
// a code understood by tablectx.RemoteDecrypter.
func DecryptTokenHandler(codec *tokencodec.Codec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if r.Method == http.MethodPost {
			var req tokenPayload
			if err := decodeJSON(r, &req); err != nil {
				writeErrorMessage(w, http.StatusBadRequest, "invalid json")
				return
			}
			token = req.Token
		}
		token = tablectx.Normalize(token)
		if token == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token is required", Code: tablectx.CodeMalformedToken})
			return
		}

		n, stall, err := codec.DecryptTable(token)
		if err != nil {
			code := tablectx.ErrorCode(err)
			status := http.StatusBadRequest
			if code == tablectx.CodeConfiguration {
				status = http.StatusInternalServerError
				slog.Error("encryption key not configured")
			} else {
				slog.Warn("table token rejected", "code", code)
			}
			writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
			return
		}

		writeJSON(w, http.StatusOK, decryptTokenResponse{
			TableNumber: n,
			StallID:     stall,
			Decrypted:   tokencodec.EncodeTable(n, stall),
		})
	}
}
