package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"qrorder/internal/cart"
	"qrorder/internal/events"
	"qrorder/internal/model"
	"qrorder/internal/orderstate"
	"qrorder/internal/ratelimit"
	"qrorder/internal/tablectx"
	"qrorder/internal/tokencodec"
)

// OrderStore is the part of the primary store the coordinator writes to.
// Satisfied by *OrderService.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to orderstate.Status) error
	SetPaymentConfirmed(ctx context.Context, id string) error
	SaveSync(ctx context.Context, rec model.POSSync) error
	GetSync(ctx context.Context, orderID string) (*model.POSSync, error)
}

// PaymentStore is satisfied by *PaymentService.
type PaymentStore interface {
	GetOrCreatePayment(ctx context.Context, orderID string, amount int64) (*model.Payment, bool, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	SetPaymentStatus(ctx context.Context, id string, to model.PaymentStatus) (*model.Payment, error)
}

// POS is satisfied by *POSClient.
type POS interface {
	CreateTransaction(ctx context.Context, tx POSTransaction) (*POSResult, error)
}

type CoordinatorDeps struct {
	Orders   OrderStore
	Payments PaymentStore
	POS      POS
	Carts    cart.Store
	Limiter  ratelimit.Limiter
	Resolver *tablectx.Resolver
	Codec    *tokencodec.Codec
	Events   events.Publisher
}

// PaymentCoordinator writes orders to the primary store and mirrors them to the
// POS backend. The two writes are not atomic: an order that is stored but not
// mirrored is kept and reported, never rolled back.
type PaymentCoordinator struct {
	orders   OrderStore
	payments PaymentStore
	pos      POS
	carts    cart.Store
	limiter  ratelimit.Limiter
	resolver *tablectx.Resolver
	codec    *tokencodec.Codec
	events   events.Publisher
	adj      Adjustments
}

func NewPaymentCoordinator(d CoordinatorDeps) *PaymentCoordinator {
	pub := d.Events
	if pub == nil {
		pub = events.Nop{}
	}
	return &PaymentCoordinator{
		orders:   d.Orders,
		payments: d.Payments,
		pos:      d.POS,
		carts:    d.Carts,
		limiter:  d.Limiter,
		resolver: d.Resolver,
		codec:    d.Codec,
		events:   pub,
	}
}

type CheckoutRequest struct {
	Session    string
	TableParam []string
	Customer   tokencodec.Customer
	Method     orderstate.Method
	OrderNote  string
}

// CheckoutResult is returned whenever the order was stored, even if the POS
// sync failed; in that case SyncPending is true and the error is a *POSSyncError.
type CheckoutResult struct {
	Order          *model.Order `json:"order"`
	CustomerToken  string       `json:"customer_token"`
	SyncPending    bool         `json:"sync_pending"`
	POSOrderID     string       `json:"pos_order_id,omitempty"`
	POSOrderNumber string       `json:"pos_order_number,omitempty"`
	NextStep       string       `json:"next_step"`
}

const (
	NextConfirmation = "confirmation"
	NextPayment      = "payment"
	NextRetry        = "retry"
)

func (c *PaymentCoordinator) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	raw := tablectx.Normalize(req.TableParam...)
	if err := ratelimit.Check(ctx, c.limiter, "checkout-"+raw, ratelimit.Checkout); err != nil {
		return nil, err
	}

	table, err := c.resolveTable(ctx, req.TableParam)
	if err != nil {
		return nil, err
	}

	cust := tokencodec.Customer{
		Name:  strings.TrimSpace(req.Customer.Name),
		Phone: strings.TrimSpace(req.Customer.Phone),
		Email: strings.TrimSpace(req.Customer.Email),
		Note:  strings.TrimSpace(req.Customer.Note),
	}
	if err := validateCheckout(req.Method, cust); err != nil {
		return nil, err
	}

	ledger, err := c.carts.Load(ctx, req.Session)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if ledger.Empty() {
		return nil, ErrEmptyCart
	}
	if ledger.Table != table.Key() {
		return nil, ErrTableMismatch
	}

	custToken, err := c.codec.EncryptCustomer(cust)
	if err != nil {
		return nil, fmt.Errorf("encrypt customer: %w", err)
	}

	order := &model.Order{
		TableNumber:   table.TableNumber,
		StallID:       table.StallID,
		TableToken:    table.RawToken,
		CustomerName:  cust.Name,
		CustomerPhone: cust.Phone,
		CustomerEmail: cust.Email,
		PaymentMethod: req.Method,
		OrderNote:     strings.TrimSpace(req.OrderNote),
		Status:        orderstate.Initial(req.Method),
		Total:         ledger.Total(),
	}
	for _, it := range ledger.Snapshot() {
		order.Items = append(order.Items, model.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Qty:       it.Qty,
			Note:      it.Note,
		})
	}

	if err := c.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	slog.Info("order created", "order_id", order.ID, "table", order.TableNumber, "method", order.PaymentMethod, "total", order.Total)
	c.publish(ctx, events.OrderCreated, order, "")

	res := &CheckoutResult{Order: order, CustomerToken: custToken}

	if req.Method == orderstate.MethodQRIS {
		c.clearCart(ctx, req.Session, ledger)
		res.NextStep = NextPayment
		return res, nil
	}

	posRes, err := c.sync(ctx, order, POSStatusPending, false)
	if err != nil {
		res.SyncPending = true
		res.NextStep = NextRetry
		return res, err
	}

	c.clearCart(ctx, req.Session, ledger)
	res.POSOrderID, res.POSOrderNumber = posRes.OrderID, posRes.OrderNumber
	res.NextStep = NextConfirmation
	return res, nil
}

// RetrySync re-sends a CASHIER order whose POS sync failed. An order already
// synced is not sent again.
func (c *PaymentCoordinator) RetrySync(ctx context.Context, session, orderID string) (*CheckoutResult, error) {
	if err := ratelimit.Check(ctx, c.limiter, "checkout-sync-"+orderID, ratelimit.Checkout); err != nil {
		return nil, err
	}

	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != orderstate.MethodCashier {
		return nil, ErrWrongPaymentMethod
	}

	res := &CheckoutResult{Order: order, NextStep: NextConfirmation}

	rec, err := c.orders.GetSync(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.State == model.SyncStateSynced {
		res.POSOrderID, res.POSOrderNumber = rec.POSOrderID, rec.POSOrderNumber
		return res, nil
	}

	posRes, err := c.sync(ctx, order, POSStatusPending, false)
	if err != nil {
		res.SyncPending = true
		res.NextStep = NextRetry
		return res, err
	}

	if ledger, err := c.carts.Load(ctx, session); err == nil && ledger.Table == tableKey(order) {
		c.clearCart(ctx, session, ledger)
	}
	res.POSOrderID, res.POSOrderNumber = posRes.OrderID, posRes.OrderNumber
	return res, nil
}

// PaymentView is what the QRIS payment screen shows.
type PaymentView struct {
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment"`
	Created bool           `json:"created"`
}

// GetOrCreatePayment is idempotent per order.
func (c *PaymentCoordinator) GetOrCreatePayment(ctx context.Context, orderID string) (*PaymentView, error) {
	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != orderstate.MethodQRIS {
		return nil, ErrWrongPaymentMethod
	}

	p, created, err := c.payments.GetOrCreatePayment(ctx, orderID, order.Total)
	if err != nil {
		return nil, fmt.Errorf("get or create payment: %w", err)
	}
	if created {
		slog.Info("payment created", "payment_id", p.ID, "order_id", orderID, "amount", p.Amount)
	}
	return &PaymentView{Order: order, Payment: p, Created: created}, nil
}

type CompleteRequest struct {
	OrderID    string
	TableParam []string
	Email      string
}

// CompleteQRIS handles the customer's "Selesai" action: the order is sent to the
// POS as finished and paid. It does not depend on kitchen progress.
func (c *PaymentCoordinator) CompleteQRIS(ctx context.Context, req CompleteRequest) (*CheckoutResult, error) {
	key := fmt.Sprintf("payment-%s-%s", tablectx.Normalize(req.TableParam...), strings.ToLower(strings.TrimSpace(req.Email)))
	if err := ratelimit.Check(ctx, c.limiter, key, ratelimit.Payment); err != nil {
		return nil, err
	}

	order, err := c.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != orderstate.MethodQRIS {
		return nil, ErrWrongPaymentMethod
	}

	res := &CheckoutResult{Order: order, NextStep: NextConfirmation}

	rec, err := c.orders.GetSync(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.State == model.SyncStateSynced {
		res.POSOrderID, res.POSOrderNumber = rec.POSOrderID, rec.POSOrderNumber
		return res, nil
	}

	posRes, err := c.sync(ctx, order, POSStatusFinished, true)
	if err != nil {
		res.SyncPending = true
		res.NextStep = NextPayment
		return res, err
	}
	res.POSOrderID, res.POSOrderNumber = posRes.OrderID, posRes.OrderNumber
	return res, nil
}

// ConfirmPayment applies the external confirmation of a QRIS payment. On success
// the order is marked paid and, if the kitchen already finished it, moved to PAID.
func (c *PaymentCoordinator) ConfirmPayment(ctx context.Context, paymentID string, success bool) (*model.Payment, error) {
	to := model.PaymentFailed
	if success {
		to = model.PaymentSuccess
	}

	p, err := c.payments.SetPaymentStatus(ctx, paymentID, to)
	if err != nil {
		return nil, err
	}
	slog.Info("payment finalized", "payment_id", p.ID, "order_id", p.OrderID, "status", p.Status)

	order, err := c.orders.GetOrder(ctx, p.OrderID)
	if err != nil {
		return p, err
	}
	c.publish(ctx, events.PaymentUpdated, order, string(p.Status))

	if !success {
		return p, nil
	}

	if err := c.orders.SetPaymentConfirmed(ctx, order.ID); err != nil {
		return p, err
	}
	order.PaymentConfirmed = true

	if order.Status == orderstate.Ready {
		if _, err := c.apply(ctx, order, orderstate.Paid); err != nil {
			return p, err
		}
	}
	return p, nil
}

// AdvanceOrder applies a staff-requested status change.
func (c *PaymentCoordinator) AdvanceOrder(ctx context.Context, orderID string, to orderstate.Status) (*model.Order, error) {
	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order, err = c.apply(ctx, order, to)
	if err != nil {
		return nil, err
	}

	if order.Status == orderstate.Ready && order.PaymentMethod == orderstate.MethodQRIS && order.PaymentConfirmed {
		return c.apply(ctx, order, orderstate.Paid)
	}
	return order, nil
}

func (c *PaymentCoordinator) apply(ctx context.Context, order *model.Order, to orderstate.Status) (*model.Order, error) {
	from := order.Status
	if _, err := orderstate.Transition(from, to, order.PaymentMethod); err != nil {
		return nil, err
	}
	if err := c.orders.UpdateOrderStatus(ctx, order.ID, from, to); err != nil {
		return nil, err
	}

	next := *order
	next.Status = to
	slog.Info("order status changed", "order_id", order.ID, "from", from, "to", to)
	c.publish(ctx, events.OrderStatusChanged, &next, string(to))
	return &next, nil
}

func (c *PaymentCoordinator) sync(ctx context.Context, order *model.Order, status string, paid bool) (*POSResult, error) {
	res, err := c.pos.CreateTransaction(ctx, BuildTransaction(order, status, paid, c.adj))
	if err != nil {
		slog.Error("pos sync failed", "order_id", order.ID, "error", err)
		if saveErr := c.orders.SaveSync(ctx, model.POSSync{OrderID: order.ID, State: model.SyncStateFailed, LastError: err.Error()}); saveErr != nil {
			slog.Error("failed to record pos sync failure", "order_id", order.ID, "error", saveErr)
		}
		c.publish(ctx, events.OrderPOSSyncFailed, order, err.Error())

		var syncErr *POSSyncError
		if !errors.As(err, &syncErr) {
			err = &POSSyncError{Op: "transaksi", Err: err}
		}
		return nil, err
	}

	rec := model.POSSync{
		OrderID:        order.ID,
		State:          model.SyncStateSynced,
		POSOrderID:     res.OrderID,
		POSOrderNumber: res.OrderNumber,
	}
	if err := c.orders.SaveSync(ctx, rec); err != nil {
		slog.Error("failed to record pos sync", "order_id", order.ID, "error", err)
	}
	slog.Info("order synced to pos", "order_id", order.ID, "pos_order_number", res.OrderNumber)
	c.publish(ctx, events.OrderPOSSynced, order, res.OrderNumber)
	return res, nil
}

func (c *PaymentCoordinator) resolveTable(ctx context.Context, param []string) (tablectx.Identity, error) {
	id, err := c.resolver.Resolve(ctx, param...)
	if err != nil {
		return id, err
	}
	if !id.Valid {
		return id, &InvalidTableError{Reason: id.Reason}
	}
	return id, nil
}

func (c *PaymentCoordinator) clearCart(ctx context.Context, session string, l *cart.Ledger) {
	l.Clear()
	if err := c.carts.Save(ctx, session, l); err != nil {
		slog.Error("failed to clear cart", "error", err)
	}
}

func (c *PaymentCoordinator) publish(ctx context.Context, typ string, o *model.Order, detail string) {
	e := events.New(typ, o.ID)
	e.TableNumber = o.TableNumber
	e.Status = string(o.Status)
	e.Detail = detail
	if err := c.events.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish event", "type", typ, "order_id", o.ID, "error", err)
	}
}

func validateCheckout(m orderstate.Method, cust tokencodec.Customer) error {
	switch {
	case !m.Valid():
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, m)
	case cust.Name == "":
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	case cust.Phone == "":
		return fmt.Errorf("%w: customer phone is required", ErrValidation)
	case strings.ContainsRune(cust.Name+cust.Phone+cust.Email, '|'):
		return fmt.Errorf("%w: customer fields must not contain '|'", ErrValidation)
	}
	return nil
}

// tableKey matches tablectx.Identity.Key for the table the order was placed at.
func tableKey(o *model.Order) string {
	return tokencodec.EncodeTable(o.TableNumber, o.StallID)
}
