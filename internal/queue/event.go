// Package queue defines the booking events exchanged over RabbitMQ, the
// publisher used by the services and the consumer that writes them to
// the booking log.
package queue

import (
    "time"

    "github.com/shopspring/decimal"
)

// BookingQueueName is the durable queue booking events are routed to.
const BookingQueueName = "booking.events"

// EventType names a booking lifecycle change.
type EventType string

const (
    EventCreated    EventType = "booking.created"
    EventConfirmed  EventType = "booking.confirmed"
    EventWaitlisted EventType = "booking.waitlisted"
    EventPromoted   EventType = "booking.promoted"
    EventCancelled  EventType = "booking.cancelled"
    EventDone       EventType = "booking.done"
)

// BookingEvent is published after a booking change has been committed.
// It carries enough information for consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
    Type          EventType       `json:"type"`
    BookingID     uint64          `json:"booking_id"`
    Reference     string          `json:"reference"`
    CustomerID    uint64          `json:"customer_id"`
    ItemID        uint64          `json:"item_id"`
    ItemName      string          `json:"item_name"`
    Quantity      int             `json:"quantity"`
    Amount        decimal.Decimal `json:"amount"`
    Currency      string          `json:"currency"`
    State         string          `json:"state"`
    Overbooked    bool            `json:"overbooked,omitempty"`
    CorrelationID string          `json:"correlation_id,omitempty"`
    OccurredAt    time.Time       `json:"occurred_at"`
}
