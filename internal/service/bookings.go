package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/ident"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/logger"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/messaging"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/metrics"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/providers"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/repository"
)

const (
	changedBySystem   = "system"
	changedByCustomer = "customer"
	changedByGateway  = "gateway"

	referenceRetries = 3
)

// BookingService is the orchestrator: the only component that sequences
// the ledger, the gateway, the issuer and the audit log.
type BookingService struct {
	store     BookingStore
	payments  PaymentStore
	tickets   *TicketService
	gateways  *gateway.Router
	providers *providers.Registry
	nats      *messaging.NATSClient
	holdTTL   time.Duration
}

func NewBookingService(store BookingStore, payments PaymentStore, tickets *TicketService, gateways *gateway.Router, registry *providers.Registry, nats *messaging.NATSClient, holdTTL time.Duration) *BookingService {
	return &BookingService{
		store:     store,
		payments:  payments,
		tickets:   tickets,
		gateways:  gateways,
		providers: registry,
		nats:      nats,
		holdTTL:   holdTTL,
	}
}

// Create runs the whole purchase flow. The hold, the PENDING booking and
// its first audit entry commit in one short transaction before the gateway
// is called; the gateway call never holds the inventory row lock.
func (s *BookingService) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error) {
	now := time.Now()

	tt, err := s.store.GetTicketType(ctx, req.TicketTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	if tt == nil || !tt.IsActive {
		return nil, apperrors.NewValidation("ticket_type_id", "ticket type not found")
	}
	if tt.EventID != req.EventID {
		return nil, apperrors.NewValidation("event_id", "ticket type does not belong to event")
	}
	if req.Quantity < tt.MinPurchase || req.Quantity > tt.MaxPurchase {
		return nil, apperrors.NewValidation("quantity",
			fmt.Sprintf("quantity must be between %d and %d", tt.MinPurchase, tt.MaxPurchase))
	}
	if !tt.SaleOpenAt(now) {
		return nil, apperrors.NewValidation("ticket_type_id", "sale window is closed")
	}

	event, err := s.store.GetEventInfo(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NewValidation("event_id", "event not found")
	}

	booking := s.buildBooking(req, tt, event, now)

	if err := s.createWithHold(ctx, booking, now); err != nil {
		if errors.Is(err, apperrors.ErrInsufficientInventory) {
			metrics.InventoryRejections.Inc()
		}
		return nil, err
	}

	if err := s.nats.Publish(models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		EventID:          booking.EventID,
		TicketTypeID:     booking.TicketTypeID,
		Quantity:         booking.Quantity,
		Timestamp:        now,
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking created event",
			"error", err, "booking_id", booking.ID)
	}

	payment, intent, gatewayErr := s.charge(ctx, booking)

	if gatewayErr != nil {
		if err := s.failPending(ctx, booking, payment, gatewayErr); err != nil {
			logger.WithContext(ctx).Error("Failed to roll back booking after gateway failure",
				"error", err, "booking_id", booking.ID)
			return nil, fmt.Errorf("failed to roll back booking: %w", err)
		}
		metrics.BookingsCreated.WithLabelValues("declined").Inc()
		return nil, gatewayErr
	}

	if intent.Status == gateway.IntentSucceeded {
		issued, err := s.confirmPaid(ctx, booking, payment)
		if err != nil {
			return nil, err
		}
		metrics.BookingsCreated.WithLabelValues("paid").Inc()
		return &models.CreateBookingResponse{
			Status:  "confirmed",
			Booking: booking,
			Payment: payment,
			Tickets: issued,
		}, nil
	}

	// Gateway accepted the intent but settlement is asynchronous; the
	// webhook reconciler finishes the job.
	metrics.BookingsCreated.WithLabelValues("pending").Inc()
	resp := &models.CreateBookingResponse{
		Status:  "pending_payment",
		Booking: booking,
		Payment: payment,
	}
	if intent.ClientSecret != "" {
		resp.ClientSecret = &intent.ClientSecret
	}
	return resp, nil
}

func (s *BookingService) buildBooking(req *models.CreateBookingRequest, tt *models.TicketType, event *models.EventInfo, now time.Time) *models.Booking {
	qty := decimal.NewFromInt(int64(req.Quantity))
	total := tt.Price.Mul(qty)

	rate := decimal.Zero
	if event.OrganizerGenerated {
		rate = event.PlatformCommissionRate
	}
	commission := total.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)

	return &models.Booking{
		UserID:                   req.UserID,
		EventID:                  req.EventID,
		TicketTypeID:             req.TicketTypeID,
		Quantity:                 req.Quantity,
		UnitPrice:                tt.Price,
		TotalPrice:               total,
		Currency:                 tt.Currency,
		PlatformCommissionRate:   rate,
		PlatformCommissionAmount: commission,
		OrganizerRevenue:         total.Sub(commission),
		Status:                   models.BookingPending,
		PaymentMethod:            req.PaymentMethod,
		CustomerName:             req.CustomerName,
		CustomerEmail:            req.CustomerEmail,
		CustomerPhone:            req.CustomerPhone,
		ExpiryDate:               now.Add(s.holdTTL),
	}
}

func (s *BookingService) createWithHold(ctx context.Context, booking *models.Booking, now time.Time) error {
	for attempt := 0; attempt < referenceRetries; attempt++ {
		reference, err := ident.BookingReference(now)
		if err != nil {
			return fmt.Errorf("failed to generate booking reference: %w", err)
		}
		booking.BookingReference = reference

		err = s.store.CreateBookingWithHold(ctx, booking, changedByCustomer)
		if errors.Is(err, repository.ErrDuplicateReference) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to allocate unique booking reference after %d attempts", referenceRetries)
}

// charge creates the payment record and calls the gateway. Returned errors
// are gateway failures; the caller decides the rollback.
func (s *BookingService) charge(ctx context.Context, booking *models.Booking) (*models.Payment, *gateway.Intent, error) {
	payment := &models.Payment{
		BookingID: booking.ID,
		Amount:    booking.TotalPrice,
		Currency:  booking.Currency,
		Method:    booking.PaymentMethod,
		Status:    models.PaymentPending,
	}

	if err := s.createPayment(ctx, payment); err != nil {
		return nil, nil, err
	}

	if err := s.payments.Transition(ctx, payment.ID, models.PaymentPending, models.PaymentProcessing); err != nil {
		return payment, nil, fmt.Errorf("failed to mark payment processing: %w", err)
	}
	payment.Status = models.PaymentProcessing

	start := time.Now()
	intent, err := s.gateways.ForMethod(booking.PaymentMethod).CreateIntent(ctx, gateway.IntentRequest{
		AmountMinorUnits: minorUnits(booking.TotalPrice),
		Currency:         booking.Currency,
		BookingReference: booking.BookingReference,
		CustomerEmail:    booking.CustomerEmail,
		Description:      fmt.Sprintf("%d ticket(s), booking %s", booking.Quantity, booking.BookingReference),
		Metadata: map[string]string{
			"booking_reference": booking.BookingReference,
		},
	})
	metrics.GatewayRequestDuration.WithLabelValues("create_intent").Observe(time.Since(start).Seconds())

	if err != nil {
		return payment, nil, err
	}

	externalID := intent.ExternalID
	raw := fmt.Sprintf("intent %s status %s", intent.ExternalID, intent.Status)
	if err := s.payments.RecordGatewayResult(ctx, payment.ID, payment.Status, &externalID, &raw, nil); err != nil {
		logger.WithContext(ctx).Error("Failed to record gateway result",
			"error", err, "payment_id", payment.ID)
	}
	payment.ExternalPaymentID = &externalID

	return payment, intent, nil
}

func (s *BookingService) createPayment(ctx context.Context, payment *models.Payment) error {
	for attempt := 0; attempt < referenceRetries; attempt++ {
		reference, err := ident.PaymentReference(time.Now())
		if err != nil {
			return fmt.Errorf("failed to generate payment reference: %w", err)
		}
		payment.PaymentReference = reference

		err = s.payments.Create(ctx, payment)
		if errors.Is(err, repository.ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to allocate unique payment reference after %d attempts", referenceRetries)
}

// confirmPaid moves a PENDING booking to PAID, settles the payment and
// issues tickets. Safe to call from the synchronous path, the webhook path
// and on redelivery after a partial settlement: an already-PAID booking
// skips the transition and the issuer's count guard tops up the ticket set.
func (s *BookingService) confirmPaid(ctx context.Context, booking *models.Booking, payment *models.Payment) ([]models.Ticket, error) {
	confirmedAt := time.Now()
	if booking.Status != models.BookingPaid {
		err := s.transitionWithRetry(ctx, booking, models.BookingPaid, "payment completed", changedByGateway, &confirmedAt)
		if err != nil {
			return nil, err
		}
	}

	if payment != nil && payment.Status != models.PaymentCompleted {
		if err := s.payments.Transition(ctx, payment.ID, payment.Status, models.PaymentCompleted); err != nil {
			logger.WithContext(ctx).Error("Failed to mark payment completed",
				"error", err, "payment_id", payment.ID)
		} else {
			payment.Status = models.PaymentCompleted
		}
	}

	issued, err := s.tickets.Issue(ctx, booking)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tickets: %w", err)
	}

	s.syncProvider(ctx, booking, providers.ActionConfirm)

	if err := s.nats.Publish(models.EventBookingPaid, models.BookingPaidEvent{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		TotalAmount:      booking.TotalPrice.StringFixed(2),
		TicketCount:      len(issued),
		Timestamp:        confirmedAt,
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking paid event",
			"error", err, "booking_id", booking.ID)
	}

	return issued, nil
}

// failPending rolls a PENDING booking back after a gateway failure:
// CANCELLED status, inventory released, reason recorded on the payment.
func (s *BookingService) failPending(ctx context.Context, booking *models.Booking, payment *models.Payment, cause error) error {
	reason := "payment failed"
	var failureDetail *string
	if ge, ok := apperrors.AsGateway(cause); ok {
		detail := ge.Reason
		if ge.Detail != "" {
			detail = ge.Reason + ": " + ge.Detail
		}
		failureDetail = &detail
	}

	if payment != nil {
		if err := s.payments.RecordGatewayResult(ctx, payment.ID, models.PaymentFailed, nil, nil, failureDetail); err != nil {
			logger.WithContext(ctx).Error("Failed to record payment failure",
				"error", err, "payment_id", payment.ID)
		}
		payment.Status = models.PaymentFailed
	}

	if err := s.transitionWithRetry(ctx, booking, models.BookingCancelled, reason, changedByGateway, nil); err != nil {
		return err
	}

	if err := s.store.ReleaseHold(ctx, booking); err != nil {
		return fmt.Errorf("failed to release inventory: %w", err)
	}

	if err := s.nats.Publish(models.EventPaymentFailed, models.PaymentFailedEvent{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		Reason:           reason,
		Timestamp:        time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish payment failed event",
			"error", err, "booking_id", booking.ID)
	}
	return nil
}

// Cancel handles user-initiated cancellation, refunding settled bookings.
func (s *BookingService) Cancel(ctx context.Context, reference string, req *models.CancelBookingRequest) (*models.CancelBookingResponse, error) {
	booking, err := s.store.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.UserID != req.UserID {
		return nil, apperrors.NewValidation("user_id", "booking belongs to another user")
	}
	if booking.Status.Terminal() {
		return nil, apperrors.NewValidation("status",
			fmt.Sprintf("booking is already %s", booking.Status))
	}

	event, err := s.store.GetEventInfo(ctx, booking.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event != nil && time.Now().After(event.Date) {
		return nil, apperrors.NewValidation("event_id", "event date has passed")
	}

	reason := req.Reason
	if reason == "" {
		reason = "cancelled by customer"
	}

	resp := &models.CancelBookingResponse{Status: "cancelled"}

	wasPaid := booking.Status == models.BookingPaid
	if wasPaid {
		refundID, refundAmount, err := s.refund(ctx, booking, reason)
		if err != nil {
			return nil, err
		}
		if err := s.transitionWithRetry(ctx, booking, models.BookingRefunded, reason, changedByCustomer, nil); err != nil {
			return nil, err
		}
		resp.Status = "refunded"
		resp.RefundID = refundID
		resp.RefundAmount = refundAmount
	} else {
		if err := s.transitionWithRetry(ctx, booking, models.BookingCancelled, reason, changedByCustomer, nil); err != nil {
			return nil, err
		}
	}

	if err := s.store.ReleaseHold(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to release inventory: %w", err)
	}

	if err := s.tickets.CancelForBooking(ctx, booking.ID); err != nil {
		logger.WithContext(ctx).Error("Failed to cancel tickets",
			"error", err, "booking_id", booking.ID)
	}

	s.syncProvider(ctx, booking, providers.ActionCancel)

	if err := s.nats.Publish(models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		Reason:           reason,
		Refunded:         wasPaid,
		Timestamp:        time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking cancelled event",
			"error", err, "booking_id", booking.ID)
	}

	resp.Booking = booking
	return resp, nil
}

func (s *BookingService) refund(ctx context.Context, booking *models.Booking, reason string) (*string, *decimal.Decimal, error) {
	payment, err := s.payments.LatestCompleted(ctx, booking.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find completed payment: %w", err)
	}
	if payment == nil || payment.ExternalPaymentID == nil {
		return nil, nil, fmt.Errorf("no completed payment to refund for booking %s", booking.BookingReference)
	}

	// Claim the payment before going to the gateway. The compare-and-swap
	// picks a single winner among concurrent cancels, so only one refund
	// ever reaches the external API.
	if err := s.payments.Transition(ctx, payment.ID, models.PaymentCompleted, models.PaymentRefunded); err != nil {
		return nil, nil, fmt.Errorf("failed to claim refund: %w", err)
	}

	start := time.Now()
	refund, err := s.gateways.ForMethod(booking.PaymentMethod).CreateRefund(ctx, gateway.RefundRequest{
		ExternalPaymentID: *payment.ExternalPaymentID,
		Reason:            reason,
	})
	metrics.GatewayRequestDuration.WithLabelValues("create_refund").Observe(time.Since(start).Seconds())
	if err != nil {
		if rbErr := s.payments.Transition(ctx, payment.ID, models.PaymentRefunded, models.PaymentCompleted); rbErr != nil {
			logger.WithContext(ctx).Error("Failed to release refund claim",
				"error", rbErr, "payment_id", payment.ID)
		}
		return nil, nil, err
	}

	if err := s.payments.MarkRefunded(ctx, payment.ID, refund.RefundID, payment.Amount, reason, false); err != nil {
		return nil, nil, fmt.Errorf("failed to record refund: %w", err)
	}

	return &refund.RefundID, &payment.Amount, nil
}

// Get returns a booking with its tickets and payments, applying lazy
// expiry to a PENDING booking whose hold has lapsed.
func (s *BookingService) Get(ctx context.Context, reference string) (*models.GetBookingResponse, error) {
	booking, err := s.store.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}

	if booking.HoldExpired(time.Now()) {
		if err := s.Expire(ctx, booking); err != nil &&
			!errors.Is(err, apperrors.ErrConcurrencyConflict) && !apperrors.IsValidation(err) {
			logger.WithContext(ctx).Error("Failed to expire booking lazily",
				"error", err, "booking_id", booking.ID)
		}
	}

	tickets, err := s.tickets.store.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	payments, err := s.payments.ListByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &models.GetBookingResponse{
		Booking:  booking,
		Tickets:  tickets,
		Payments: payments,
	}, nil
}

// Expire transitions a lapsed PENDING booking to EXPIRED and returns its
// hold to the pool. Called by the sweeper and lazily on reads.
func (s *BookingService) Expire(ctx context.Context, booking *models.Booking) error {
	if err := s.transitionWithRetry(ctx, booking, models.BookingExpired, "reservation hold expired", changedBySystem, nil); err != nil {
		return err
	}

	if err := s.store.ReleaseHold(ctx, booking); err != nil {
		return fmt.Errorf("failed to release inventory: %w", err)
	}

	metrics.ExpiredBookings.Inc()

	if err := s.nats.Publish(models.EventBookingExpired, models.BookingExpiredEvent{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		Timestamp:        time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking expired event",
			"error", err, "booking_id", booking.ID)
	}
	return nil
}

// transitionWithRetry applies one state-machine move, retrying once with a
// fresh read when another writer won the race. The state machine itself is
// validated before touching storage.
func (s *BookingService) transitionWithRetry(ctx context.Context, booking *models.Booking, to models.BookingStatus, reason, changedBy string, confirmedAt *time.Time) error {
	for attempt := 0; ; attempt++ {
		if !booking.Status.CanTransition(to) {
			return apperrors.NewValidation("status",
				fmt.Sprintf("cannot transition from %s to %s", booking.Status, to))
		}

		err := s.store.TransitionBooking(ctx, booking, to, reason, changedBy, confirmedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrConcurrencyConflict) || attempt >= 1 {
			return err
		}

		fresh, err := s.store.GetBooking(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("failed to re-read booking: %w", err)
		}
		if fresh == nil {
			return apperrors.ErrNotFound
		}
		*booking = *fresh
	}
}

func (s *BookingService) syncProvider(ctx context.Context, booking *models.Booking, action string) {
	if s.providers == nil {
		return
	}

	tt, err := s.store.GetTicketType(ctx, booking.TicketTypeID)
	if err != nil || tt == nil || tt.ExternalProvider == nil {
		return
	}

	client, err := s.providers.ForName(*tt.ExternalProvider)
	if err != nil {
		logger.WithContext(ctx).Error("Unknown external ticket provider",
			"error", err, "provider", *tt.ExternalProvider)
		return
	}

	if err := client.Sync(ctx, booking, action); err != nil {
		// Provider sync is best effort; the booking is already settled
		// locally and a reconciliation job can repair drift.
		logger.WithContext(ctx).Error("Failed to sync booking with external provider",
			"error", err, "provider", *tt.ExternalProvider,
			"booking_id", booking.ID, "action", action)
	}
}

// minorUnits converts a decimal major-unit amount to integer minor units.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
