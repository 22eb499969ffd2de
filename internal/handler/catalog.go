package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"qrorder/internal/model"
	"qrorder/internal/tokencodec"
)

// Catalog is satisfied by *service.CatalogService.
type Catalog interface {
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, id string, price int64, available bool) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, onlyAvailable bool) ([]model.Product, error)
	CreateTable(ctx context.Context, number int, stallID string) (*model.Table, error)
	GetTable(ctx context.Context, number int, stallID string) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
}

type menuResponse struct {
	Categories []model.Category `json:"categories"`
	Products   []model.Product  `json:"products"`
}

// MenuHandler lists categories and the products currently available.
func MenuHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := catalog.ListCategories(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		products, err := catalog.ListProducts(r.Context(), true)
		if err != nil {
			writeError(w, err)
			return
		}

		if cats == nil {
			cats = []model.Category{}
		}
		if products == nil {
			products = []model.Product{}
		}
		writeJSON(w, http.StatusOK, menuResponse{Categories: cats, Products: products})
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

func CreateCategoryHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
			writeErrorMessage(w, http.StatusBadRequest, "name is required")
			return
		}

		c, err := catalog.CreateCategory(r.Context(), strings.TrimSpace(req.Name))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func ListCategoriesHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := catalog.ListCategories(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if len(cats) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	}
}

type productRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Available   *bool  `json:"available"`
}

func CreateProductHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		if strings.TrimSpace(req.Name) == "" || req.Price < 0 {
			writeErrorMessage(w, http.StatusBadRequest, "name and a non-negative price are required")
			return
		}

		p := &model.Product{
			CategoryID:  req.CategoryID,
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Price:       req.Price,
			Available:   req.Available == nil || *req.Available,
		}
		if err := catalog.CreateProduct(r.Context(), p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

type productUpdateRequest struct {
	Price     *int64 `json:"price"`
	Available *bool  `json:"available"`
}

// UpdateProductHandler changes price and availability; omitted fields keep their value.
func UpdateProductHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "productID")

		var req productUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Price != nil && *req.Price < 0 {
			writeErrorMessage(w, http.StatusBadRequest, "price must not be negative")
			return
		}

		cur, err := catalog.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		price, available := cur.Price, cur.Available
		if req.Price != nil {
			price = *req.Price
		}
		if req.Available != nil {
			available = *req.Available
		}

		p, err := catalog.UpdateProduct(r.Context(), id, price, available)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type tableRequest struct {
	Number  int    `json:"number"`
	StallID string `json:"stall_id"`
}

func CreateTableHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tableRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Number < tokencodec.MinTable || req.Number > tokencodec.MaxTable {
			writeErrorMessage(w, http.StatusBadRequest, "table number must be between 1 and 999")
			return
		}

		t, err := catalog.CreateTable(r.Context(), req.Number, strings.TrimSpace(req.StallID))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func ListTablesHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := catalog.ListTables(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if len(tables) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, tables)
	}
}

type tableTokenResponse struct {
	TableNumber int    `json:"tableNumber"`
	StallID     string `json:"stallId,omitempty"`
	Token       string `json:"token"`
	Path        string `json:"path"`
}

// IssueTableTokenHandler encrypts number[:stallId] of a registered table for
// printing into its QR code.
func IssueTableTokenHandler(catalog Catalog, codec *tokencodec.Codec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid table number")
			return
		}
		stall := strings.TrimSpace(r.URL.Query().Get("stall_id"))

		t, err := catalog.GetTable(r.Context(), number, stall)
		if err != nil {
			writeError(w, err)
			return
		}

		token, err := codec.EncryptTable(t.Number, t.StallID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, tableTokenResponse{
			TableNumber: t.Number,
			StallID:     t.StallID,
			Token:       token,
			Path:        "/order/" + token,
		})
	}
}
