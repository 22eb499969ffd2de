package model

import (
	"time"

	"qrorder/internal/orderstate"
)

// OrderItem keeps the unit price seen at checkout so POS payloads never read live prices.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
	Note      string `json:"note,omitempty"`
}

// Order is immutable after creation except for Status and PaymentConfirmed.
type Order struct {
	ID               string            `json:"id"`
	TableNumber      int               `json:"table_number"`
	StallID          string            `json:"stall_id,omitempty"`
	TableToken       string            `json:"-"`
	CustomerName     string            `json:"customer_name"`
	CustomerPhone    string            `json:"customer_phone"`
	CustomerEmail    string            `json:"customer_email,omitempty"`
	PaymentMethod    orderstate.Method `json:"payment_method"`
	OrderNote        string            `json:"order_note,omitempty"`
	Items            []OrderItem       `json:"items"`
	Status           orderstate.Status `json:"status"`
	PaymentConfirmed bool              `json:"payment_confirmed"`
	Total            int64             `json:"total"`
	CreatedAt        time.Time         `json:"created_at"`
}

// POSSync records whether an order has been mirrored to the POS backend.
type POSSync struct {
	OrderID        string    `json:"order_id"`
	State          string    `json:"state"` // SYNCED, FAILED
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
	POSOrderID     string    `json:"pos_order_id,omitempty"`
	POSOrderNumber string    `json:"pos_order_number,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	SyncStateSynced = "SYNCED"
	SyncStateFailed = "FAILED"
)
