package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_engine_bookings_total",
		Help: "Bookings by final create outcome",
	}, []string{"outcome"})

	InventoryRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_inventory_rejections_total",
		Help: "Reservation attempts rejected for insufficient inventory",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_engine_webhook_events_total",
		Help: "Gateway webhook deliveries by result",
	}, []string{"result"})

	TicketCheckins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_engine_ticket_checkins_total",
		Help: "Ticket validation attempts by outcome",
	}, []string{"outcome"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_engine_gateway_request_seconds",
		Help:    "Latency of calls to the payment gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ExpiredBookings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_engine_expired_bookings_total",
		Help: "Reservation holds released by the expiry sweep",
	})
)
