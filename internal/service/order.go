package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qrorder/internal/model"
	"qrorder/internal/orderstate"
)

// OrderService is the primary store for orders and their POS sync records.
type OrderService struct {
	db *sql.DB
}

func NewOrderService(db *sql.DB) *OrderService {
	return &OrderService{db: db}
}

const orderColumns = `id, table_number, stall_id, table_token, customer_name, customer_phone,
	customer_email, payment_method, order_note, items, status, payment_confirmed, total, created_at`

// CreateOrder inserts o and fills its ID and CreatedAt from the database.
func (s *OrderService) CreateOrder(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO orders (table_number, stall_id, table_token, customer_name, customer_phone,
			customer_email, payment_method, order_note, items, status, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, o.TableNumber, o.StallID, o.TableToken, o.CustomerName, o.CustomerPhone,
		o.CustomerEmail, o.PaymentMethod, o.OrderNote, string(items), o.Status, o.Total,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if !isID(id) {
		return nil, ErrOrderNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders returns newest first. An empty status lists every order.
func (s *OrderService) ListOrders(ctx context.Context, status orderstate.Status, limit int) ([]model.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus moves an order from -> to only if it is still in from.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, from, to orderstate.Status) error {
	if !isID(id) {
		return ErrOrderNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (s *OrderService) SetPaymentConfirmed(ctx context.Context, id string) error {
	if !isID(id) {
		return ErrOrderNotFound
	}
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET payment_confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SaveSync upserts the POS sync record and counts the attempt.
func (s *OrderService) SaveSync(ctx context.Context, rec model.POSSync) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pos_syncs (order_id, state, attempts, last_error, pos_order_id, pos_order_number, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE SET
			state = EXCLUDED.state,
			attempts = pos_syncs.attempts + 1,
			last_error = EXCLUDED.last_error,
			pos_order_id = EXCLUDED.pos_order_id,
			pos_order_number = EXCLUDED.pos_order_number,
			updated_at = EXCLUDED.updated_at
	`, rec.OrderID, rec.State, rec.LastError, rec.POSOrderID, rec.POSOrderNumber, time.Now())
	if err != nil {
		return fmt.Errorf("save pos sync: %w", err)
	}
	return nil
}

// GetSync returns nil without error when the order was never sent.
func (s *OrderService) GetSync(ctx context.Context, orderID string) (*model.POSSync, error) {
	if !isID(orderID) {
		return nil, nil
	}
	var rec model.POSSync
	err := s.db.QueryRowContext(ctx, `
		SELECT order_id, state, attempts, last_error, pos_order_id, pos_order_number, updated_at
		FROM pos_syncs WHERE order_id = $1
	`, orderID).Scan(&rec.OrderID, &rec.State, &rec.Attempts, &rec.LastError,
		&rec.POSOrderID, &rec.POSOrderNumber, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pos sync: %w", err)
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o     model.Order
		items []byte
	)
	err := row.Scan(&o.ID, &o.TableNumber, &o.StallID, &o.TableToken, &o.CustomerName, &o.CustomerPhone,
		&o.CustomerEmail, &o.PaymentMethod, &o.OrderNote, &items, &o.Status, &o.PaymentConfirmed,
		&o.Total, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &o, nil
}
