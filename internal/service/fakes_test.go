package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/gateway"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/models"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/repository"
)

// fakeStore is an in-memory BookingStore mirroring the SQL semantics the
// repositories implement: conditional inventory updates, compare-and-swap
// status transitions and the idempotent release guard.
type fakeStore struct {
	mu          sync.Mutex
	ticketTypes map[int64]*models.TicketType
	events      map[int64]*models.EventInfo
	bookings    map[int64]*models.Booking
	byReference map[string]int64
	history     []models.BookingHistory
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ticketTypes: make(map[int64]*models.TicketType),
		events:      make(map[int64]*models.EventInfo),
		bookings:    make(map[int64]*models.Booking),
		byReference: make(map[string]int64),
	}
}

func (f *fakeStore) addTicketType(tt models.TicketType) {
	f.ticketTypes[tt.ID] = &tt
}

func (f *fakeStore) addEvent(e models.EventInfo) {
	f.events[e.ID] = &e
}

func (f *fakeStore) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *tt
	return &cp, nil
}

func (f *fakeStore) GetEventInfo(ctx context.Context, id int64) (*models.EventInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byReference[reference]
	if !ok {
		return nil, nil
	}
	cp := *f.bookings[id]
	return &cp, nil
}

func (f *fakeStore) CreateBookingWithHold(ctx context.Context, booking *models.Booking, changedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.byReference[booking.BookingReference]; exists {
		return repository.ErrDuplicateReference
	}

	tt, ok := f.ticketTypes[booking.TicketTypeID]
	if !ok || tt.AvailableQuantity < booking.Quantity {
		return apperrors.ErrInsufficientInventory
	}
	tt.AvailableQuantity -= booking.Quantity

	f.nextID++
	booking.ID = f.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	cp := *booking
	f.bookings[booking.ID] = &cp
	f.byReference[booking.BookingReference] = booking.ID

	prev := (*string)(nil)
	f.history = append(f.history, models.BookingHistory{
		BookingID:      booking.ID,
		PreviousStatus: prev,
		NewStatus:      string(booking.Status),
		ChangeReason:   "created",
		ChangedBy:      changedBy,
	})
	return nil
}

func (f *fakeStore) TransitionBooking(ctx context.Context, booking *models.Booking, to models.BookingStatus, reason, changedBy string, confirmedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.bookings[booking.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Status != booking.Status {
		return apperrors.ErrConcurrencyConflict
	}

	prev := string(stored.Status)
	stored.Status = to
	if confirmedAt != nil && stored.ConfirmationDate == nil {
		stored.ConfirmationDate = confirmedAt
	}
	stored.UpdatedAt = time.Now()

	booking.Status = to
	booking.ConfirmationDate = stored.ConfirmationDate

	f.history = append(f.history, models.BookingHistory{
		BookingID:      booking.ID,
		PreviousStatus: &prev,
		NewStatus:      string(to),
		ChangeReason:   reason,
		ChangedBy:      changedBy,
	})
	return nil
}

func (f *fakeStore) ReleaseHold(ctx context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.bookings[booking.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.InventoryReleased {
		return nil
	}
	stored.InventoryReleased = true
	booking.InventoryReleased = true

	tt := f.ticketTypes[booking.TicketTypeID]
	tt.AvailableQuantity += booking.Quantity
	if tt.AvailableQuantity > tt.TotalQuantity {
		tt.AvailableQuantity = tt.TotalQuantity
	}
	return nil
}

func (f *fakeStore) ListExpiredBookings(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Booking
	for _, b := range f.bookings {
		if b.Status == models.BookingPending && b.ExpiryDate.Before(cutoff) {
			out = append(out, *b)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) available(ticketTypeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticketTypes[ticketTypeID].AvailableQuantity
}

func (f *fakeStore) bookingStatus(id int64) models.BookingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id].Status
}

// fakePayments is an in-memory PaymentStore. dupCreates scripts reference
// collisions for the next N Create calls.
type fakePayments struct {
	mu         sync.Mutex
	payments   map[int64]*models.Payment
	nextID     int64
	dupCreates int
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: make(map[int64]*models.Payment)}
}

func (f *fakePayments) Create(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dupCreates > 0 {
		f.dupCreates--
		return repository.ErrDuplicateReference
	}
	for _, p := range f.payments {
		if p.PaymentReference == payment.PaymentReference {
			return repository.ErrDuplicateReference
		}
	}
	f.nextID++
	payment.ID = f.nextID
	payment.CreatedAt = time.Now()
	cp := *payment
	f.payments[payment.ID] = &cp
	return nil
}

func (f *fakePayments) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) ListByBookingID(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for id := int64(1); id <= f.nextID; id++ {
		if p, ok := f.payments[id]; ok && p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePayments) LatestCompleted(ctx context.Context, bookingID int64) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Payment
	for id := int64(1); id <= f.nextID; id++ {
		if p, ok := f.payments[id]; ok && p.BookingID == bookingID && p.Status == models.PaymentCompleted {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakePayments) Transition(ctx context.Context, id int64, from, to models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if p.Status != from {
		return apperrors.ErrConcurrencyConflict
	}
	p.Status = to
	return nil
}

func (f *fakePayments) RecordGatewayResult(ctx context.Context, id int64, status models.PaymentStatus, externalID, gatewayResponse, failureReason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.Status = status
	if externalID != nil {
		p.ExternalPaymentID = externalID
	}
	if gatewayResponse != nil {
		p.GatewayResponse = gatewayResponse
	}
	if failureReason != nil {
		p.FailureReason = failureReason
	}
	return nil
}

func (f *fakePayments) ApplyEvent(ctx context.Context, id int64, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if p.LastEventID != nil && *p.LastEventID == eventID {
		return false, nil
	}
	e := eventID
	p.LastEventID = &e
	return true, nil
}

func (f *fakePayments) MarkRefunded(ctx context.Context, id int64, refundID string, amount decimal.Decimal, reason string, partial bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	to := models.PaymentRefunded
	if partial {
		to = models.PaymentPartiallyRefunded
	}
	if p.Status != models.PaymentCompleted && p.Status != to {
		return apperrors.ErrConcurrencyConflict
	}
	p.Status = to
	now := time.Now()
	p.RefundID = &refundID
	p.RefundAmount = &amount
	p.RefundReason = &reason
	p.RefundedAt = &now
	return nil
}

func (f *fakePayments) status(id int64) models.PaymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[id].Status
}

// fakeTickets is an in-memory TicketStore with the same atomic check-in
// semantics as the SQL implementation. failCreates makes the next N
// Create calls fail, simulating a transient storage fault.
type fakeTickets struct {
	mu          sync.Mutex
	tickets     map[string]*models.Ticket
	nextID      int64
	failCreates int
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{tickets: make(map[string]*models.Ticket)}
}

func (f *fakeTickets) Create(ctx context.Context, ticket *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		return errors.New("connection reset")
	}
	if _, exists := f.tickets[ticket.TicketNumber]; exists {
		return repository.ErrDuplicateTicketNumber
	}
	f.nextID++
	ticket.ID = f.nextID
	cp := *ticket
	f.tickets[ticket.TicketNumber] = &cp
	return nil
}

func (f *fakeTickets) CountByBooking(ctx context.Context, bookingID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.BookingID == bookingID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) ListByBooking(ctx context.Context, bookingID int64) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.BookingID == bookingID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTickets) GetByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketNumber]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) CheckIn(ctx context.Context, ticketNumber, location string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketNumber]
	if !ok {
		return false, nil
	}
	if t.Status != models.TicketActive || t.CheckInTime != nil {
		return false, nil
	}
	if now.Before(t.ValidFrom) || now.After(t.ValidUntil) {
		return false, nil
	}
	t.Status = models.TicketUsed
	checkIn := now
	t.CheckInTime = &checkIn
	if location != "" {
		t.CheckInLocation = &location
	}
	return true, nil
}

func (f *fakeTickets) CancelByBooking(ctx context.Context, bookingID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.BookingID == bookingID && t.Status == models.TicketActive {
			t.Status = models.TicketCancelled
		}
	}
	return nil
}

// fakeGateway is a scriptable PaymentGateway.
type fakeGateway struct {
	mu            sync.Mutex
	intentStatus  string
	intentErr     error
	refundErr     error
	intents       int
	refunds       int
	webhookEvent  *gateway.Event
	webhookErr    error
	lastIntentReq gateway.IntentRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intentStatus: gateway.IntentSucceeded}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents++
	g.lastIntentReq = req
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	return &gateway.Intent{
		ExternalID:   "ext_test_1",
		ClientSecret: "secret_test_1",
		Status:       g.intentStatus,
	}, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return &gateway.Refund{RefundID: "re_test_1", Status: "succeeded"}, nil
}

func (g *fakeGateway) VerifyAndParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	return g.webhookEvent, nil
}

type testEnv struct {
	store    *fakeStore
	payments *fakePayments
	tickets  *fakeTickets
	card     *fakeGateway
	services *Services
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	payments := newFakePayments()
	tickets := newFakeTickets()
	card := newFakeGateway()

	services := NewServices(Deps{
		Store:    store,
		Payments: payments,
		Tickets:  tickets,
		Gateways: gateway.NewRouter(card, gateway.NewOfflineGateway()),
		HoldTTL:  15 * time.Minute,
	})

	return &testEnv{
		store:    store,
		payments: payments,
		tickets:  tickets,
		card:     card,
		services: services,
	}
}

func seedEvent(store *fakeStore, available int) {
	store.addEvent(models.EventInfo{
		ID:                     1,
		Title:                  "Ultra Europe",
		Date:                   time.Now().Add(30 * 24 * time.Hour),
		OrganizerGenerated:     true,
		PlatformCommissionRate: decimal.NewFromInt(10),
	})
	store.addTicketType(models.TicketType{
		ID:                1,
		EventID:           1,
		Name:              "General admission",
		Price:             decimal.NewFromInt(50),
		Currency:          "EUR",
		TotalQuantity:     available,
		AvailableQuantity: available,
		MinPurchase:       1,
		MaxPurchase:       6,
		IsActive:          true,
	})
}

func createRequest(quantity int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		UserID:        7,
		EventID:       1,
		TicketTypeID:  1,
		Quantity:      quantity,
		PaymentMethod: "card",
		CustomerName:  "Ana Horvat",
		CustomerEmail: "ana@example.com",
	}
}
