package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qrorder/internal/model"
	"qrorder/internal/service"
)

// PendingLister is satisfied by *service.PaymentService.
type PendingLister interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Payment, error)
}

// Confirmer is satisfied by *service.PaymentCoordinator.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, paymentID string, success bool) (*model.Payment, error)
}

// PaymentExpiryWorker fails QRIS payments left PENDING longer than ttl.
// Order statuses are never touched.
type PaymentExpiryWorker struct {
	payments  PendingLister
	confirmer Confirmer
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewPaymentExpiryWorker(payments PendingLister, confirmer Confirmer, ttl time.Duration) *PaymentExpiryWorker {
	return &PaymentExpiryWorker{
		payments:  payments,
		confirmer: confirmer,
		ttl:       ttl,
		interval:  30 * time.Second,
		batchSize: 50,
		now:       time.Now,
	}
}

func (w *PaymentExpiryWorker) Start(ctx context.Context) {
	slog.Info("starting payment expiry worker", "ttl", w.ttl)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("payment expiry worker stopped")
			return
		case <-ticker.C:
			if _, err := w.processBatch(ctx); err != nil {
				slog.Error("batch processing failed", "error", err)
			}
		}
	}
}

// processBatch returns how many payments were expired.
func (w *PaymentExpiryWorker) processBatch(ctx context.Context) (int, error) {
	pending, err := w.payments.ListPendingBefore(ctx, w.now().Add(-w.ttl), w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	expired := 0
	for _, p := range pending {
		if _, err := w.confirmer.ConfirmPayment(ctx, p.ID, false); err != nil {
			if errors.Is(err, service.ErrPaymentFinalized) {
				continue
			}
			slog.Error("failed to expire payment", "payment_id", p.ID, "error", err)
			continue
		}
		expired++
		slog.Info("payment expired", "payment_id", p.ID, "order_id", p.OrderID)
	}

	return expired, nil
}
