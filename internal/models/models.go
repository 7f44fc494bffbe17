package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBookingRequest is the payload for POST /api/booking/create
type CreateBookingRequest struct {
	UserID        int64   `json:"user_id" binding:"required"`
	EventID       int64   `json:"event_id" binding:"required"`
	TicketTypeID  int64   `json:"ticket_type_id" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required,min=1"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	CustomerName  string  `json:"customer_name" binding:"required"`
	CustomerEmail string  `json:"customer_email" binding:"required,email"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
}

// CreateBookingResponse is returned once the create flow settles
type CreateBookingResponse struct {
	Status       string    `json:"status"`
	Booking      *Booking  `json:"booking"`
	Payment      *Payment  `json:"payment,omitempty"`
	Tickets      []Ticket  `json:"tickets,omitempty"`
	ClientSecret *string   `json:"client_secret,omitempty"`
}

// GetBookingResponse aggregates a booking with its tickets and payments
type GetBookingResponse struct {
	Booking  *Booking  `json:"booking"`
	Tickets  []Ticket  `json:"tickets"`
	Payments []Payment `json:"payments"`
}

// CancelBookingRequest is the payload for POST /api/booking/:reference/cancel
type CancelBookingRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// CancelBookingResponse reports the cancellation outcome
type CancelBookingResponse struct {
	Status       string           `json:"status"`
	Booking      *Booking         `json:"booking"`
	RefundID     *string          `json:"refund_id,omitempty"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
}

// ValidateTicketRequest is the payload for POST /api/booking/ticket/validate
type ValidateTicketRequest struct {
	TicketNumber string `json:"ticket_number" binding:"required"`
	Location     string `json:"location,omitempty"`
}

// Ticket validation outcomes
const (
	ValidationValid       = "valid"
	ValidationInvalid     = "invalid"
	ValidationAlreadyUsed = "already_used"
	ValidationExpired     = "expired"
	ValidationNotYetValid = "not_yet_valid"
)

// ValidateTicketResponse reports a check-in attempt
type ValidateTicketResponse struct {
	Status       string     `json:"status"`
	TicketNumber string     `json:"ticket_number"`
	HolderName   string     `json:"holder_name,omitempty"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	Message      string     `json:"message,omitempty"`
}
