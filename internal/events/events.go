// Package events fans order changes out to dashboards and message brokers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderPOSSyncFailed = "order.pos_sync_failed"
	OrderPOSSynced     = "order.pos_synced"
	PaymentUpdated     = "payment.updated"
)

type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	TableNumber int       `json:"table_number,omitempty"`
	Status      string    `json:"status,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

func New(typ, orderID string) Event {
	return Event{ID: uuid.NewString(), Type: typ, OrderID: orderID, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
