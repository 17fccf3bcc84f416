package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderSnapshot is the wire shape of an order in live and broker events.
type OrderSnapshot struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customer_name"`
	CustomerEmail    string     `json:"customer_email"`
	ProductName      string     `json:"product_name"`
	NumberOfPersons  int32      `json:"number_of_persons"`
	OrderType        string     `json:"order_type"`
	Status           string     `json:"status"`
	TotalPrice       string     `json:"total_price"`
	OrderDate        string     `json:"order_date"`
	DeliveryDateTime *time.Time `json:"delivery_date_time,omitempty"`
	Version          int32      `json:"version"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type OrderEvent struct {
	Type       string        `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Order      OrderSnapshot `json:"order"`
}

// Publisher delivers order events after the originating transaction commits.
// Implementations log their own failures; delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent)
}

// Multi fans an event out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event OrderEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) {}
