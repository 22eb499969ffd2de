package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
)

// memOrders is an in-memory OrderStore.
type memOrders struct {
	mu     sync.Mutex
	seq    int
	orders map[string]model.Order
	syncs  map[string]model.POSSync

	CreateFunc func(o *model.Order) error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]model.Order), syncs: make(map[string]model.POSSync)}
}

func (m *memOrders) CreateOrder(_ context.Context, o *model.Order) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(o); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	o.ID = fmt.Sprintf("order-%d", m.seq)
	o.CreatedAt = time.Now()
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	m.orders[o.ID] = cp
	return nil
}

func (m *memOrders) GetOrder(_ context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (m *memOrders) UpdateOrderStatus(_ context.Context, id string, from, to orderstate.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return ErrStaleStatus
	}
	o.Status = to
	m.orders[id] = o
	return nil
}

func (m *memOrders) SetPaymentConfirmed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.PaymentConfirmed = true
	m.orders[id] = o
	return nil
}

func (m *memOrders) SaveSync(_ context.Context, rec model.POSSync) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Attempts = m.syncs[rec.OrderID].Attempts + 1
	m.syncs[rec.OrderID] = rec
	return nil
}

func (m *memOrders) GetSync(_ context.Context, orderID string) (*model.POSSync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.syncs[orderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// memPayments is an in-memory PaymentStore.
type memPayments struct {
	mu       sync.Mutex
	seq      int
	payments map[string]model.Payment
}

func newMemPayments() *memPayments {
	return &memPayments{payments: make(map[string]model.Payment)}
}

func (m *memPayments) GetOrCreatePayment(_ context.Context, orderID string, amount int64) (*model.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID {
			return &p, false, nil
		}
	}
	m.seq++
	p := model.Payment{
		ID:        fmt.Sprintf("pay-%d", m.seq),
		OrderID:   orderID,
		Method:    "QRIS",
		Amount:    amount,
		Status:    model.PaymentPending,
		CreatedAt: time.Now(),
	}
	m.payments[p.ID] = p
	return &p, true, nil
}

func (m *memPayments) GetPayment(_ context.Context, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

func (m *memPayments) SetPaymentStatus(_ context.Context, id string, to model.PaymentStatus) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	if p.Status != model.PaymentPending {
		return nil, ErrPaymentFinalized
	}
	p.Status = to
	m.payments[id] = p
	return &p, nil
}

// fakePOS records transactions and answers with Fn.
type fakePOS struct {
	mu  sync.Mutex
	txs []POSTransaction
	Fn  func(tx POSTransaction) (*POSResult, error)
}

func (f *fakePOS) CreateTransaction(_ context.Context, tx POSTransaction) (*POSResult, error) {
	f.mu.Lock()
	f.txs = append(f.txs, tx)
	f.mu.Unlock()
	if f.Fn != nil {
		return f.Fn(tx)
	}
	return &POSResult{OrderID: "77", OrderNumber: "TRX-0001"}, nil
}

func (f *fakePOS) calls() []POSTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]POSTransaction(nil), f.txs...)
}
