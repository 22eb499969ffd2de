package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"qrorder/internal/cart"
	"qrorder/internal/model"
	"qrorder/internal/tablectx"
)

const cartCookie = "cart_session"

// ProductLookup is satisfied by *service.CatalogService.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

type cartResponse struct {
	Table string      `json:"table"`
	Items []cart.Item `json:"items"`
	Total int64       `json:"total"`
}

func newCartResponse(l *cart.Ledger) cartResponse {
	return cartResponse{Table: l.Table, Items: l.Snapshot(), Total: l.Total()}
}

// cartSession returns the browser's cart session, issuing a new one if absent.
func cartSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return id
}

// withCart loads the session ledger, applies fn and saves the result.
func withCart(store cart.Store, fn func(r *http.Request, l *cart.Ledger) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := cartSession(w, r)

		l, err := store.Load(r.Context(), session)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := fn(r, l); err != nil {
			writeError(w, err)
			return
		}
		if err := store.Save(r.Context(), session, l); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartResponse(l))
	}
}

func GetCartHandler(store cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := store.Load(r.Context(), cartSession(w, r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newCartResponse(l))
	}
}

// BindCartTableHandler binds the cart to the table in the path. Switching to
// another table empties the cart.
func BindCartTableHandler(store cart.Store, resolver *tablectx.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resolver.Resolve(r.Context(), tableParam(r)...)
		if err != nil {
			writeError(w, err)
			return
		}
		if !id.Valid {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid table", Reason: string(id.Reason)})
			return
		}

		withCart(store, func(_ *http.Request, l *cart.Ledger) error {
			l.SetTable(id.Key())
			return nil
		})(w, r)
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Note      string `json:"note"`
}

// AddCartItemHandler prices the item from the catalog, never from the client.
func AddCartItemHandler(store cart.Store, products ProductLookup) http.HandlerFunc {
	return withCart(store, func(r *http.Request, l *cart.Ledger) error {
		var req addItemRequest
		if err := decodeJSON(r, &req); err != nil || req.ProductID == "" {
			return cart.ErrInvalidItem
		}
		if l.Table == "" {
			return cart.ErrTableNotBound
		}

		p, err := products.GetProduct(r.Context(), req.ProductID)
		if err != nil {
			return err
		}
		if !p.Available {
			return errProductUnavailable
		}

		return l.AddItem(cart.Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Note: req.Note})
	})
}

type updateItemRequest struct {
	Qty  *int    `json:"qty"`
	Note *string `json:"note"`
}

func UpdateCartItemHandler(store cart.Store) http.HandlerFunc {
	return withCart(store, func(r *http.Request, l *cart.Ledger) error {
		id := chi.URLParam(r, "productID")

		var req updateItemRequest
		if err := decodeJSON(r, &req); err != nil {
			return cart.ErrInvalidItem
		}
		if req.Note != nil {
			if err := l.UpdateNote(id, *req.Note); err != nil {
				return err
			}
		}
		if req.Qty != nil {
			return l.UpdateQuantity(id, *req.Qty)
		}
		return nil
	})
}

func RemoveCartItemHandler(store cart.Store) http.HandlerFunc {
	return withCart(store, func(r *http.Request, l *cart.Ledger) error {
		return l.RemoveItem(chi.URLParam(r, "productID"))
	})
}

func ClearCartHandler(store cart.Store) http.HandlerFunc {
	return withCart(store, func(_ *http.Request, l *cart.Ledger) error {
		l.Clear()
		return nil
	})
}
