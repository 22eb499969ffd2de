package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
)

func TestBuildTransaction(t *testing.T) {
	order := &model.Order{
		ID:            "order-1",
		TableNumber:   7,
		CustomerName:  "Budi",
		CustomerPhone: "0812",
		PaymentMethod: orderstate.MethodCashier,
		Items: []model.OrderItem{
			{ProductID: "p1", Name: "Nasi Goreng", Price: 15000, Qty: 2},
			{ProductID: "p2", Name: "Es Teh", Price: 5000, Qty: 3, Note: "less sugar"},
		},
	}

	tests := []struct {
		name      string
		method    orderstate.Method
		paid      bool
		adj       Adjustments
		wantTotal int64
		wantPaid  int64
		wantID    int
	}{
		{name: "cashier unpaid", method: orderstate.MethodCashier, wantTotal: 45000, wantPaid: 0, wantID: posMethodIDCashier},
		{name: "qris paid", method: orderstate.MethodQRIS, paid: true, wantTotal: 45000, wantPaid: 45000, wantID: posMethodIDQRIS},
		{
			name:      "adjustments",
			method:    orderstate.MethodQRIS,
			paid:      true,
			adj:       Adjustments{Discount: 5000, Tax: 4000, OtherFees: 1000},
			wantTotal: 45000,
			wantPaid:  45000,
			wantID:    posMethodIDQRIS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := *order
			o.PaymentMethod = tt.method
			tx := BuildTransaction(&o, POSStatusPending, tt.paid, tt.adj)

			if tx.BaseAmount != 45000 {
				t.Errorf("Expected base 45000, got %d", tx.BaseAmount)
			}
			if tx.TotalAmount != tt.wantTotal || tx.PaidAmount != tt.wantPaid {
				t.Errorf("Expected total=%d paid=%d, got total=%d paid=%d", tt.wantTotal, tt.wantPaid, tx.TotalAmount, tx.PaidAmount)
			}
			if tx.MethodID != tt.wantID {
				t.Errorf("Expected method id %d, got %d", tt.wantID, tx.MethodID)
			}
			if len(tx.Items) != 2 || tx.Items[1].Subtotal != 15000 || tx.Items[1].Note != "less sugar" {
				t.Errorf("Unexpected items: %+v", tx.Items)
			}
		})
	}
}

func newPOSServer(t *testing.T, h http.HandlerFunc) *POSClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPOSClient(srv.URL + "/")
}

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantID     string
		wantNumber string
	}{
		{
			name:       "success with id",
			status:     http.StatusOK,
			body:       `{"status":"Success","data":{"id":42,"nomor_transaksi":"TRX-42"}}`,
			wantID:     "42",
			wantNumber: "TRX-42",
		},
		{
			name:       "success with order_id",
			status:     http.StatusOK,
			body:       `{"status":"Success","data":{"order_id":"abc","order_number":"ORD-1"}}`,
			wantID:     "abc",
			wantNumber: "ORD-1",
		},
		{name: "success status error", status: http.StatusOK, body: `{"status":"Error","message":"stok habis"}`, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, wantErr: true},
		{name: "bad gateway json", status: http.StatusBadGateway, body: `{"status":"Error"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got POSTransaction
			client := newPOSServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/meja/transaksi" {
					t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res, err := client.CreateTransaction(context.Background(), POSTransaction{OrderRef: "order-1", TotalAmount: 45000})
			if got.OrderRef != "order-1" || got.TotalAmount != 45000 {
				t.Errorf("Payload not delivered: %+v", got)
			}

			if tt.wantErr {
				var syncErr *POSSyncError
				if !errors.As(err, &syncErr) {
					t.Fatalf("Expected POSSyncError, got %v", err)
				}
				if syncErr.StatusCode != tt.status {
					t.Errorf("Expected status code %d, got %d", tt.status, syncErr.StatusCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTransaction failed: %v", err)
			}
			if res.OrderID != tt.wantID || res.OrderNumber != tt.wantNumber {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantID, tt.wantNumber, res.OrderID, res.OrderNumber)
			}
		})
	}
}

func TestCreateTransactionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewPOSClient(srv.URL)
	srv.Close()

	_, err := client.CreateTransaction(context.Background(), POSTransaction{})
	var syncErr *POSSyncError
	if !errors.As(err, &syncErr) || syncErr.Err == nil {
		t.Fatalf("Expected transport POSSyncError, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	client := newPOSServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/meja/profile" || body["token_meja"] != "aa:bb" {
			t.Errorf("Unexpected request %s %v", r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":3,"nama":"Warung Bu Sri","qris":"storage/qris.png"}}`))
	})

	p, err := client.Profile(context.Background(), "aa:bb")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.StallID != "3" || p.Name != "Warung Bu Sri" {
		t.Errorf("Unexpected profile: %+v", p)
	}
	if p.QRISImage != client.baseURL+"/storage/qris.png" {
		t.Errorf("Expected absolute qris url, got %q", p.QRISImage)
	}
}

func TestProductsByToken(t *testing.T) {
	client := newPOSServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "aa:bb" || r.URL.Query().Get("page") != "2" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"status":"Success","data":{"items":[{"id":1}]}}`))
	})

	data, err := client.ProductsByToken(context.Background(), "aa:bb", 2)
	if err != nil {
		t.Fatalf("ProductsByToken failed: %v", err)
	}
	if string(data) != `{"items":[{"id":1}]}` {
		t.Errorf("Unexpected data %s", data)
	}
}
