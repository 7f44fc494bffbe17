package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/errors"
	"github.com/JS1240/kruzna-karta-hrvatska-sub002/internal/service"
)

// ExpirationJob sweeps PENDING bookings whose reservation hold has lapsed
// and returns their inventory to the pool. The read path also expires
// lazily; the sweep is what reclaims holds nobody ever looks at again.
type ExpirationJob struct {
	store     service.BookingStore
	bookings  *service.BookingService
	interval  time.Duration
	batchSize int
	ticker    *time.Ticker
	done      chan bool
}

func NewExpirationJob(store service.BookingStore, bookings *service.BookingService, interval time.Duration, batchSize int) *ExpirationJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpirationJob{
		store:     store,
		bookings:  bookings,
		interval:  interval,
		batchSize: batchSize,
		done:      make(chan bool),
	}
}

// Start begins the background sweep loop.
func (j *ExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting booking expiration job",
		"check_interval", j.interval.String(), "batch_size", j.batchSize)

	j.ticker = time.NewTicker(j.interval)

	// Run initial sweep immediately
	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Booking expiration job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *ExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ExpirationJob) sweep(ctx context.Context) {
	expired, err := j.store.ListExpiredBookings(ctx, time.Now(), j.batchSize)
	if err != nil {
		slog.Error("Failed to list expired bookings", "error", err)
		return
	}

	if len(expired) == 0 {
		slog.Debug("No expired bookings found")
		return
	}

	slog.Info("Found expired bookings to process", "count", len(expired))

	for i := range expired {
		booking := &expired[i]
		err := j.bookings.Expire(ctx, booking)
		switch {
		case err == nil:
			slog.Info("Booking expired",
				"booking_id", booking.ID,
				"booking_reference", booking.BookingReference,
				"held_since", booking.CreatedAt)
		case errors.Is(err, apperrors.ErrConcurrencyConflict), apperrors.IsValidation(err):
			// Another writer moved the booking first; nothing to reclaim.
			slog.Debug("Booking changed state before expiry sweep",
				"booking_id", booking.ID)
		default:
			slog.Error("Failed to expire booking",
				"error", err,
				"booking_id", booking.ID,
				"booking_reference", booking.BookingReference)
		}
	}
}
