package events

import (
	"time"

	"gardem-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an order lifecycle event.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderDeleted       EventType = "order.deleted"
)

// OrderEvent is the payload published for every committed order change.
type OrderEvent struct {
	EventID        uuid.UUID          `json:"event_id"`
	EventType      EventType          `json:"event_type"`
	Timestamp      time.Time          `json:"timestamp"`
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	UserID         uuid.UUID          `json:"user_id"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previous_status,omitempty"`
	Total          decimal.Decimal    `json:"total"`
	ActorID        *uuid.UUID         `json:"actor_id,omitempty"`
	Comment        string             `json:"comment,omitempty"`
}

// NewOrderEvent builds an event snapshot of order.
func NewOrderEvent(eventType EventType, order *domain.Order) *OrderEvent {
	return &OrderEvent{
		EventID:     uuid.New(),
		EventType:   eventType,
		Timestamp:   time.Now().UTC(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Total,
	}
}
