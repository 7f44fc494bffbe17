package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/ident"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/messaging"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/metrics"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/repository"
)

// ticketValidityAfterEvent keeps gates open for late check-outs on the
// day after the event.
const ticketValidityAfterEvent = 24 * time.Hour

// TicketService issues tickets for paid bookings and validates them at
// the gate.
type TicketService struct {
	store    TicketStore
	bookings BookingStore
	nats     *messaging.NATSClient
}

func NewTicketService(store TicketStore, bookings BookingStore, nats *messaging.NATSClient) *TicketService {
	return &TicketService{store: store, bookings: bookings, nats: nats}
}

// Issue creates one ticket per purchased seat. Re-invocation is a no-op:
// the count guard returns the already-issued set instead of minting more.
func (s *TicketService) Issue(ctx context.Context, booking *models.Booking) ([]models.Ticket, error) {
	existing, err := s.store.CountByBooking(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	if existing >= booking.Quantity {
		return s.store.ListByBooking(ctx, booking.ID)
	}

	event, err := s.bookings.GetEventInfo(ctx, booking.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d not found for booking %s", booking.EventID, booking.BookingReference)
	}

	now := time.Now()
	validUntil := event.Date.Add(ticketValidityAfterEvent)

	for i := existing; i < booking.Quantity; i++ {
		ticket := &models.Ticket{
			BookingID:   booking.ID,
			Status:      models.TicketActive,
			HolderName:  booking.CustomerName,
			HolderEmail: booking.CustomerEmail,
			ValidFrom:   now,
			ValidUntil:  validUntil,
		}
		if err := s.createWithNumber(ctx, ticket, now); err != nil {
			return nil, err
		}
	}

	return s.store.ListByBooking(ctx, booking.ID)
}

func (s *TicketService) createWithNumber(ctx context.Context, ticket *models.Ticket, now time.Time) error {
	for attempt := 0; attempt < referenceRetries; attempt++ {
		number, err := ident.TicketNumber(now)
		if err != nil {
			return fmt.Errorf("failed to generate ticket number: %w", err)
		}
		ticket.TicketNumber = number

		err = s.store.Create(ctx, ticket)
		if errors.Is(err, repository.ErrDuplicateTicketNumber) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to allocate unique ticket number after %d attempts", referenceRetries)
}

// Validate performs a gate check-in. Only one concurrent scan of the same
// ticket wins; the loser is reported as already used.
func (s *TicketService) Validate(ctx context.Context, req *models.ValidateTicketRequest) (*models.ValidateTicketResponse, error) {
	now := time.Now()

	ticket, err := s.store.GetByNumber(ctx, req.TicketNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return invalidResponse(req.TicketNumber, "ticket not found"), nil
	}

	if resp := classifyTicket(ticket, now); resp != nil {
		metrics.TicketCheckins.WithLabelValues(resp.Status).Inc()
		return resp, nil
	}

	checkedIn, err := s.store.CheckIn(ctx, req.TicketNumber, req.Location, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check in ticket: %w", err)
	}
	if !checkedIn {
		// Lost the race or state changed between read and update.
		fresh, err := s.store.GetByNumber(ctx, req.TicketNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read ticket: %w", err)
		}
		if fresh != nil {
			if resp := classifyTicket(fresh, now); resp != nil {
				metrics.TicketCheckins.WithLabelValues(resp.Status).Inc()
				return resp, nil
			}
		}
		return invalidResponse(req.TicketNumber, "check-in rejected"), nil
	}

	metrics.TicketCheckins.WithLabelValues(models.ValidationValid).Inc()

	if err := s.nats.Publish(models.EventTicketValidated, models.TicketValidatedEvent{
		TicketNumber: req.TicketNumber,
		Location:     req.Location,
		Timestamp:    now,
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket validated event",
			"error", err, "ticket_number", req.TicketNumber)
	}

	return &models.ValidateTicketResponse{
		Status:       models.ValidationValid,
		TicketNumber: ticket.TicketNumber,
		HolderName:   ticket.HolderName,
		CheckInTime:  &now,
	}, nil
}

// classifyTicket returns the rejection response for a ticket that cannot
// be checked in, or nil when the ticket is eligible.
func classifyTicket(ticket *models.Ticket, now time.Time) *models.ValidateTicketResponse {
	switch {
	case ticket.CheckInTime != nil || ticket.Status == models.TicketUsed:
		return &models.ValidateTicketResponse{
			Status:       models.ValidationAlreadyUsed,
			TicketNumber: ticket.TicketNumber,
			HolderName:   ticket.HolderName,
			CheckInTime:  ticket.CheckInTime,
			Message:      "ticket was already checked in",
		}
	case ticket.Status != models.TicketActive:
		return invalidResponse(ticket.TicketNumber,
			fmt.Sprintf("ticket is %s", ticket.Status))
	case now.Before(ticket.ValidFrom):
		return &models.ValidateTicketResponse{
			Status:       models.ValidationNotYetValid,
			TicketNumber: ticket.TicketNumber,
			HolderName:   ticket.HolderName,
			Message:      "ticket validity window has not started",
		}
	case now.After(ticket.ValidUntil):
		return &models.ValidateTicketResponse{
			Status:       models.ValidationExpired,
			TicketNumber: ticket.TicketNumber,
			HolderName:   ticket.HolderName,
			Message:      "ticket validity window has passed",
		}
	}
	return nil
}

func invalidResponse(ticketNumber, message string) *models.ValidateTicketResponse {
	return &models.ValidateTicketResponse{
		Status:       models.ValidationInvalid,
		TicketNumber: ticketNumber,
		Message:      message,
	}
}

// CancelForBooking voids the remaining active tickets of a booking.
func (s *TicketService) CancelForBooking(ctx context.Context, bookingID int64) error {
	return s.store.CancelByBooking(ctx, bookingID)
}

// Payload builds the contract encoded into a scannable code for a ticket.
func (s *TicketService) Payload(ticket *models.Ticket, booking *models.Booking) models.ValidationPayload {
	return models.ValidationPayload{
		TicketNumber:     ticket.TicketNumber,
		BookingReference: booking.BookingReference,
		EventID:          booking.EventID,
		HolderName:       ticket.HolderName,
		ValidUntil:       ticket.ValidUntil,
	}
}
