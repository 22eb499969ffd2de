package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"qrorder/internal/model"
)

type PaymentService struct {
	db *sql.DB
}

func NewPaymentService(db *sql.DB) *PaymentService {
	return &PaymentService{db: db}
}

const paymentColumns = `id, order_id, method, amount, status, created_at`

// GetOrCreatePayment looks the payment up by order first and inserts only when
// none exists. The unique order_id constraint settles concurrent first visits.
func (s *PaymentService) GetOrCreatePayment(ctx context.Context, orderID string, amount int64) (*model.Payment, bool, error) {
	p, err := s.byOrder(ctx, orderID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return nil, false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (order_id, method, amount, status)
		VALUES ($1, 'QRIS', $2, $3)
		ON CONFLICT (order_id) DO NOTHING
	`, orderID, amount, model.PaymentPending)
	if err != nil {
		return nil, false, fmt.Errorf("insert payment: %w", err)
	}
	n, _ := res.RowsAffected()

	p, err = s.byOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return p, n == 1, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	if !isID(id) {
		return nil, ErrPaymentNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

// SetPaymentStatus finalizes a PENDING payment. Finalized payments are never changed.
func (s *PaymentService) SetPaymentStatus(ctx context.Context, id string, to model.PaymentStatus) (*model.Payment, error) {
	if !isID(id) {
		return nil, ErrPaymentNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE payments SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING `+paymentColumns,
		to, id, model.PaymentPending,
	)
	p, err := scanPayment(row)
	if errors.Is(err, ErrPaymentNotFound) {
		if _, getErr := s.GetPayment(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrPaymentFinalized
	}
	return p, err
}

// ListPendingBefore returns pending payments created before cutoff, oldest first.
func (s *PaymentService) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`, model.PaymentPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return payments, nil
}

func (s *PaymentService) byOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	if !isID(orderID) {
		return nil, ErrOrderNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
	return scanPayment(row)
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}
