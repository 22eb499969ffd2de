package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
	"qrorder/internal/service"
	"qrorder/internal/tokencodec"
)

func newCodec(t *testing.T) *tokencodec.Codec {
	t.Helper()
	codec, err := tokencodec.New("handler-test-secret")
	if err != nil {
		t.Fatalf("New codec failed: %v", err)
	}
	return codec
}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type fakeFlow struct {
	CheckoutFn func(req service.CheckoutRequest) (*service.CheckoutResult, error)
	RetryFn    func(session, orderID string) (*service.CheckoutResult, error)
	PaymentFn  func(orderID string) (*service.PaymentView, error)
	CompleteFn func(req service.CompleteRequest) (*service.CheckoutResult, error)
	ConfirmFn  func(paymentID string, success bool) (*model.Payment, error)
	AdvanceFn  func(orderID string, to orderstate.Status) (*model.Order, error)
}

func (f *fakeFlow) Checkout(_ context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	return f.CheckoutFn(req)
}

func (f *fakeFlow) RetrySync(_ context.Context, session, orderID string) (*service.CheckoutResult, error) {
	return f.RetryFn(session, orderID)
}

func (f *fakeFlow) GetOrCreatePayment(_ context.Context, orderID string) (*service.PaymentView, error) {
	return f.PaymentFn(orderID)
}

func (f *fakeFlow) CompleteQRIS(_ context.Context, req service.CompleteRequest) (*service.CheckoutResult, error) {
	return f.CompleteFn(req)
}

func (f *fakeFlow) ConfirmPayment(_ context.Context, paymentID string, success bool) (*model.Payment, error) {
	return f.ConfirmFn(paymentID, success)
}

func (f *fakeFlow) AdvanceOrder(_ context.Context, orderID string, to orderstate.Status) (*model.Order, error) {
	return f.AdvanceFn(orderID, to)
}

// fakeCatalog keeps products in memory; the remaining Catalog methods are unused stubs.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]model.Product
	tables   []model.Table
}

func newFakeCatalog(products ...model.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]model.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) CreateCategory(_ context.Context, name string) (*model.Category, error) {
	return &model.Category{ID: "cat-1", Name: name}, nil
}

func (c *fakeCatalog) ListCategories(context.Context) ([]model.Category, error) {
	return []model.Category{{ID: "cat-1", Name: "Makanan"}}, nil
}

func (c *fakeCatalog) CreateProduct(_ context.Context, p *model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.ID = "p-new"
	c.products[p.ID] = *p
	return nil
}

func (c *fakeCatalog) UpdateProduct(_ context.Context, id string, price int64, available bool) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	p.Price, p.Available = price, available
	c.products[id] = p
	return &p, nil
}

func (c *fakeCatalog) GetProduct(_ context.Context, id string) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) ListProducts(_ context.Context, onlyAvailable bool) ([]model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Product
	for _, p := range c.products {
		if !onlyAvailable || p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) CreateTable(_ context.Context, number int, stallID string) (*model.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tables {
		if t.Number == number && t.StallID == stallID {
			return nil, service.ErrAlreadyExists
		}
	}
	t := model.Table{ID: "t-new", Number: number, StallID: stallID}
	c.tables = append(c.tables, t)
	return &t, nil
}

func (c *fakeCatalog) GetTable(_ context.Context, number int, stallID string) (*model.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tables {
		if t.Number == number && t.StallID == stallID {
			return &t, nil
		}
	}
	return nil, service.ErrNotFound
}

func (c *fakeCatalog) ListTables(context.Context) ([]model.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Table(nil), c.tables...), nil
}
