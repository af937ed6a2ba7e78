// Package events carries order lifecycle notifications to whoever listens:
// the kitchen bot, a RabbitMQ exchange, or both.
package events

import (
	"context"
	"errors"
	"time"

	"terracafe/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderItemPrepared  = "order.item_prepared"
)

// OrderTypes lists every event type, for binding a consumer to all of them.
var OrderTypes = []string{TypeOrderCreated, TypeOrderStatusChanged, TypeOrderItemPrepared}

type Event struct {
	Type           string          `json:"type"`
	OrderID        int64           `json:"order_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	ItemID         int64           `json:"item_id,omitempty"`
	Total          decimal.Decimal `json:"total"`
	At             time.Time       `json:"at"`
}

func OrderCreated(o *models.Order) Event {
	return Event{Type: TypeOrderCreated, OrderID: o.ID, Status: o.Status, Total: o.Total, At: o.CreatedAt}
}

func StatusChanged(o *models.Order, previous string) Event {
	return Event{
		Type:           TypeOrderStatusChanged,
		OrderID:        o.ID,
		Status:         o.Status,
		PreviousStatus: previous,
		Total:          o.Total,
		At:             o.UpdatedAt,
	}
}

// ItemPrepared reports one line of o marked as done while the order stays in
// the kitchen.
func ItemPrepared(o *models.Order, itemID int64) Event {
	return Event{Type: TypeOrderItemPrepared, OrderID: o.ID, Status: o.Status, ItemID: itemID, Total: o.Total, At: o.UpdatedAt}
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every sink. A failing sink is logged and does
// not stop delivery to the others; the joined error is returned.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, e); err != nil {
			log.Error().Err(err).Str("type", e.Type).Int64("order", e.OrderID).Msg("event sink failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
