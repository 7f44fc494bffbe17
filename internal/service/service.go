package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/cache"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/messaging"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/providers"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/repository"
)

// BookingStore is the unit-of-work facade the orchestrator drives. It is
// implemented by *repository.Repositories; tests substitute in-memory
// fakes.
type BookingStore interface {
	GetTicketType(ctx context.Context, id int64) (*models.TicketType, error)
	GetEventInfo(ctx context.Context, id int64) (*models.EventInfo, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	CreateBookingWithHold(ctx context.Context, booking *models.Booking, changedBy string) error
	TransitionBooking(ctx context.Context, booking *models.Booking, to models.BookingStatus, reason, changedBy string, confirmedAt *time.Time) error
	ReleaseHold(ctx context.Context, booking *models.Booking) error
	ListExpiredBookings(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
}

// PaymentStore persists gateway transaction attempts.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	ListByBookingID(ctx context.Context, bookingID int64) ([]models.Payment, error)
	LatestCompleted(ctx context.Context, bookingID int64) (*models.Payment, error)
	Transition(ctx context.Context, id int64, from, to models.PaymentStatus) error
	RecordGatewayResult(ctx context.Context, id int64, status models.PaymentStatus, externalID, gatewayResponse, failureReason *string) error
	ApplyEvent(ctx context.Context, id int64, eventID string) (bool, error)
	MarkRefunded(ctx context.Context, id int64, refundID string, amount decimal.Decimal, reason string, partial bool) error
}

// TicketStore persists issued tickets.
type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	CountByBooking(ctx context.Context, bookingID int64) (int, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]models.Ticket, error)
	GetByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error)
	CheckIn(ctx context.Context, ticketNumber, location string, now time.Time) (bool, error)
	CancelByBooking(ctx context.Context, bookingID int64) error
}

type Services struct {
	Bookings *BookingService
	Tickets  *TicketService
	Webhooks *WebhookService
}

// Deps bundles the collaborators injected into the service layer.
type Deps struct {
	Store     BookingStore
	Payments  PaymentStore
	Tickets   TicketStore
	Gateways  *gateway.Router
	Providers *providers.Registry
	NATS      *messaging.NATSClient
	Dedup     *cache.DedupClient
	HoldTTL   time.Duration
}

func NewServices(d Deps) *Services {
	if d.HoldTTL == 0 {
		d.HoldTTL = 15 * time.Minute
	}

	tickets := NewTicketService(d.Tickets, d.Store, d.NATS)
	bookings := NewBookingService(d.Store, d.Payments, tickets, d.Gateways, d.Providers, d.NATS, d.HoldTTL)
	webhooks := NewWebhookService(d.Gateways.Webhooks(), d.Store, d.Payments, bookings, d.Dedup)

	return &Services{
		Bookings: bookings,
		Tickets:  tickets,
		Webhooks: webhooks,
	}
}

// NewServicesFromRepositories wires the production store implementations.
func NewServicesFromRepositories(repos *repository.Repositories, d Deps) *Services {
	d.Store = repos
	d.Payments = repos.Payments
	d.Tickets = repos.Tickets
	return NewServices(d)
}
