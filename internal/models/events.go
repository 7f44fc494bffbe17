package models

import "time"

// NATS subjects for booking lifecycle events
const (
	EventBookingCreated   = "booking.created"
	EventBookingPaid      = "booking.paid"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
	EventPaymentFailed    = "payment.failed"
	EventTicketValidated  = "ticket.validated"
)

// BookingCreatedEvent is published when a reservation hold is taken
type BookingCreatedEvent struct {
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	EventID          int64     `json:"event_id"`
	TicketTypeID     int64     `json:"ticket_type_id"`
	Quantity         int       `json:"quantity"`
	Timestamp        time.Time `json:"timestamp"`
}

// BookingPaidEvent is published when a booking reaches PAID
type BookingPaidEvent struct {
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	TotalAmount      string    `json:"total_amount"`
	TicketCount      int       `json:"ticket_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published on cancellation or refund
type BookingCancelledEvent struct {
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	Reason           string    `json:"reason"`
	Refunded         bool      `json:"refunded"`
	Timestamp        time.Time `json:"timestamp"`
}

// BookingExpiredEvent is published when a reservation hold lapses
type BookingExpiredEvent struct {
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	Timestamp        time.Time `json:"timestamp"`
}

// PaymentFailedEvent is published when a gateway attempt fails
type PaymentFailedEvent struct {
	BookingID        int64     `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	Reason           string    `json:"reason"`
	Timestamp        time.Time `json:"timestamp"`
}

// TicketValidatedEvent is published on successful check-in
type TicketValidatedEvent struct {
	TicketNumber string    `json:"ticket_number"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
}
