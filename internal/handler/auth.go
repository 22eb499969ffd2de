package handler

import (
	"context"
	"net/http"
	"strings"

	"qrorder/internal/model"
)

// StaffAuth is satisfied by *service.AuthService.
type StaffAuth interface {
	Register(ctx context.Context, login, password string) (*model.Staff, error)
	Authenticate(ctx context.Context, login, password string) (*model.Staff, error)
	IssueToken(staffID string) (string, error)
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func RegisterHandler(auth StaffAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		req.Login = strings.TrimSpace(req.Login)
		if req.Login == "" || req.Password == "" {
			writeErrorMessage(w, http.StatusBadRequest, "login and password required")
			return
		}

		staff, err := auth.Register(r.Context(), req.Login, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		issueToken(w, auth, staff.ID)
	}
}

func LoginHandler(auth StaffAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}

		staff, err := auth.Authenticate(r.Context(), strings.TrimSpace(req.Login), req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		issueToken(w, auth, staff.ID)
	}
}

func issueToken(w http.ResponseWriter, auth StaffAuth, staffID string) {
	token, err := auth.IssueToken(staffID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}
