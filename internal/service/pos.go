package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
)

const (
	POSStatusPending  = "pending"
	POSStatusFinished = "selesai"

	posMethodCashier   = "kasir"
	posMethodQRIS      = "qris"
	posMethodIDCashier = 1
	posMethodIDQRIS    = 2
)

// POSClient talks to the external POS backend (/meja/* endpoints).
type POSClient struct {
	baseURL string
	client  *http.Client
}

func NewPOSClient(baseURL string) *POSClient {
	return &POSClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type POSItem struct {
	ProductID string `json:"produk_id"`
	Name      string `json:"nama_produk"`
	Qty       int    `json:"jumlah"`
	Price     int64  `json:"harga"`
	Subtotal  int64  `json:"subtotal"`
	Note      string `json:"catatan,omitempty"`
}

// POSTransaction is the /meja/transaksi payload. Amounts are integer rupiah.
type POSTransaction struct {
	OrderRef      string    `json:"referensi_order"`
	TableToken    string    `json:"token_meja,omitempty"`
	TableNumber   int       `json:"nomor_meja"`
	StallID       string    `json:"id_stall,omitempty"`
	CustomerName  string    `json:"nama_pelanggan"`
	CustomerPhone string    `json:"no_hp"`
	CustomerEmail string    `json:"email,omitempty"`
	Note          string    `json:"catatan,omitempty"`
	Method        string    `json:"metode_pembayaran"`
	MethodID      int       `json:"metode_pembayaran_id"`
	Status        string    `json:"status"`
	BaseAmount    int64     `json:"nominal_dasar"`
	Discount      int64     `json:"diskon"`
	Tax           int64     `json:"pajak"`
	OtherFees     int64     `json:"biaya_lainnya"`
	TotalAmount   int64     `json:"jumlah_total"`
	PaidAmount    int64     `json:"nominal_bayar"`
	Items         []POSItem `json:"items"`
}

// Adjustments are applied on top of the item base amount. All zero for now.
type Adjustments struct {
	Discount  int64
	Tax       int64
	OtherFees int64
}

// BuildTransaction mirrors an order into a POS payload. paid decides whether
// nominal_bayar carries the full total or zero.
func BuildTransaction(o *model.Order, status string, paid bool, adj Adjustments) POSTransaction {
	tx := POSTransaction{
		OrderRef:      o.ID,
		TableToken:    o.TableToken,
		TableNumber:   o.TableNumber,
		StallID:       o.StallID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		Note:          o.OrderNote,
		Status:        status,
		Discount:      adj.Discount,
		Tax:           adj.Tax,
		OtherFees:     adj.OtherFees,
	}

	if o.PaymentMethod == orderstate.MethodQRIS {
		tx.Method, tx.MethodID = posMethodQRIS, posMethodIDQRIS
	} else {
		tx.Method, tx.MethodID = posMethodCashier, posMethodIDCashier
	}

	for _, it := range o.Items {
		sub := it.Price * int64(it.Qty)
		tx.BaseAmount += sub
		tx.Items = append(tx.Items, POSItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			Price:     it.Price,
			Subtotal:  sub,
			Note:      it.Note,
		})
	}

	tx.TotalAmount = tx.BaseAmount - tx.Discount + tx.Tax + tx.OtherFees
	if paid {
		tx.PaidAmount = tx.TotalAmount
	}
	return tx
}

// POSResult is the normalized data of a successful transaction.
type POSResult struct {
	OrderID     string `json:"pos_order_id"`
	OrderNumber string `json:"pos_order_number"`
}

type posEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type posTransactionData struct {
	ID             flexString `json:"id"`
	OrderID        flexString `json:"order_id"`
	NomorTransaksi flexString `json:"nomor_transaksi"`
	OrderNumber    flexString `json:"order_number"`
}

func (d posTransactionData) normalize() *POSResult {
	r := &POSResult{OrderID: string(d.ID), OrderNumber: string(d.NomorTransaksi)}
	if r.OrderID == "" {
		r.OrderID = string(d.OrderID)
	}
	if r.OrderNumber == "" {
		r.OrderNumber = string(d.OrderNumber)
	}
	return r
}

// CreateTransaction succeeds only on HTTP 200 with status "Success".
func (c *POSClient) CreateTransaction(ctx context.Context, tx POSTransaction) (*POSResult, error) {
	const op = "transaksi"

	env, code, err := c.do(ctx, http.MethodPost, "/meja/transaksi", tx)
	if err != nil {
		return nil, &POSSyncError{Op: op, Err: err}
	}
	if code != http.StatusOK {
		return nil, &POSSyncError{Op: op, StatusCode: code, POSStatus: env.Status, Message: env.Message}
	}
	if env.Status != "Success" {
		return nil, &POSSyncError{Op: op, StatusCode: code, POSStatus: env.Status, Message: env.Message}
	}

	var data posTransactionData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &POSSyncError{Op: op, StatusCode: code, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return data.normalize(), nil
}

// StallProfile is the normalized /meja/profile answer.
type StallProfile struct {
	StallID   string `json:"stall_id"`
	Name      string `json:"name"`
	QRISImage string `json:"qris_image,omitempty"`
}

type posProfileData struct {
	ID        flexString `json:"id"`
	StallID   flexString `json:"id_stall"`
	Name      string     `json:"nama_stall"`
	AltName   string     `json:"nama"`
	QRISImage string     `json:"qris"`
	QRISPath  string     `json:"qris_image"`
}

func (c *POSClient) Profile(ctx context.Context, tableToken string) (*StallProfile, error) {
	const op = "profile"

	env, code, err := c.do(ctx, http.MethodPost, "/meja/profile", map[string]string{"token_meja": tableToken})
	if err != nil {
		return nil, &POSSyncError{Op: op, Err: err}
	}
	if code != http.StatusOK || !strings.EqualFold(env.Status, "Success") {
		return nil, &POSSyncError{Op: op, StatusCode: code, POSStatus: env.Status, Message: env.Message}
	}

	var d posProfileData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, &POSSyncError{Op: op, StatusCode: code, Err: fmt.Errorf("decode data: %w", err)}
	}

	p := &StallProfile{StallID: string(d.StallID), Name: d.Name, QRISImage: d.QRISPath}
	if p.StallID == "" {
		p.StallID = string(d.ID)
	}
	if p.Name == "" {
		p.Name = d.AltName
	}
	if p.QRISImage == "" {
		p.QRISImage = d.QRISImage
	}
	if p.QRISImage != "" && !strings.HasPrefix(p.QRISImage, "http") {
		p.QRISImage = c.baseURL + "/" + strings.TrimLeft(p.QRISImage, "/")
	}
	return p, nil
}

// ProductsByToken returns one page of the stall catalog as sent by the POS.
func (c *POSClient) ProductsByToken(ctx context.Context, tableToken string, page int) (json.RawMessage, error) {
	const op = "products-by-token"

	q := url.Values{}
	q.Set("token", tableToken)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}

	env, code, err := c.do(ctx, http.MethodGet, "/meja/products-by-token?"+q.Encode(), nil)
	if err != nil {
		return nil, &POSSyncError{Op: op, Err: err}
	}
	if code != http.StatusOK {
		return nil, &POSSyncError{Op: op, StatusCode: code, POSStatus: env.Status, Message: env.Message}
	}
	return env.Data, nil
}

func (c *POSClient) do(ctx context.Context, method, path string, body any) (*posEnvelope, int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	var env posEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			env.Message = strings.TrimSpace(string(raw))
			return &env, resp.StatusCode, nil
		}
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &env, resp.StatusCode, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}
