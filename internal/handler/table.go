package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"qrorder/internal/tablectx"
)

// tableParam splits the catch-all into path segments. A token sent as
// /<ivHex>/<cipherHex> is rejoined with ':' by tablectx.Normalize.
func tableParam(r *http.Request) []string {
	return strings.Split(chi.URLParam(r, "*"), "/")
}

// ResolveTableHandler answers 200 with a valid identity and 400 with the
// rejection reason otherwise. With allowFixture set (development only) the
// caller may opt in to the flagged table-1 fixture via ?fixture=1.
func ResolveTableHandler(resolver *tablectx.Resolver, allowFixture bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resolver.Resolve(r.Context(), tableParam(r)...)
		if err != nil {
			writeError(w, err)
			return
		}

		if !id.Valid && allowFixture && r.URL.Query().Get("fixture") == "1" {
			id = tablectx.WithFixture(id)
		}

		if !id.Valid {
			writeJSON(w, http.StatusBadRequest, id)
			return
		}
		writeJSON(w, http.StatusOK, id)
	}
}
