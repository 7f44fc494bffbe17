package models

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingPaid      BookingStatus = "PAID"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingRefunded  BookingStatus = "REFUNDED"
	BookingExpired   BookingStatus = "EXPIRED"

	// BookingConfirmed is a legacy alias of PAID kept for statistics rollups
	// from the old reporting pipeline. It is never produced by a transition.
	BookingConfirmed BookingStatus = "CONFIRMED"
)

// bookingTransitions is the closed set of legal booking moves. Terminal
// states have no outgoing edges, so a late webhook can never resurrect a
// cancelled or refunded booking.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingPaid, BookingCancelled, BookingExpired},
	BookingPaid:    {BookingCancelled, BookingRefunded},
}

// CanTransition reports whether moving from -> to is a legal booking move.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// PaymentStatus is the lifecycle state of a single gateway transaction.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentProcessing        PaymentStatus = "PROCESSING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentCompleted, PaymentFailed},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
	PaymentCompleted:  {PaymentRefunded, PaymentPartiallyRefunded},
}

// CanTransition reports whether moving from -> to is a legal payment move.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// TicketStatus is the lifecycle state of an individual ticket.
type TicketStatus string

const (
	TicketActive    TicketStatus = "ACTIVE"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketExpired   TicketStatus = "EXPIRED"
)
