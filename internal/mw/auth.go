package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const StaffCtxKey contextKey = "staff_id"

// StaffID returns the authenticated staff id stored by AuthMiddleware.
func StaffID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(StaffCtxKey).(string)
	return id, ok
}

// AuthMiddleware accepts "Authorization: Bearer <jwt>". Browsers cannot set
// headers on websocket upgrades, so ?access_token= is accepted as well.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid claims", http.StatusUnauthorized)
				return
			}

			staffID, ok := claims["staff_id"].(string)
			if !ok || staffID == "" {
				http.Error(w, "staff_id not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), StaffCtxKey, staffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		t := r.URL.Query().Get("access_token")
		return t, t != ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
