// Package metrics holds the Prometheus collectors of the service.  All
// collectors are registered on Registry, which /metrics exposes.
package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process wide registry; it carries the Go runtime and
// process collectors as well as the collectors below.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
    Registry.MustRegister(
        collectors.NewGoCollector(),
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )
}

var (
    // HTTPRequests counts served requests by method, route and status.
    HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
        Name: "bookable_http_requests_total",
        Help: "HTTP requests by method, route and status code.",
    }, []string{"method", "route", "status"})

    // HTTPDuration observes request latency by method and route.
    HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "bookable_http_request_duration_seconds",
        Help:    "HTTP request latency.",
        Buckets: prometheus.DefBuckets,
    }, []string{"method", "route"})

    // BookingsCreated counts newly created bookings.
    BookingsCreated = factory.NewCounter(prometheus.CounterOpts{
        Name: "bookable_bookings_created_total",
        Help: "Bookings created.",
    })

    // BookingTransitions counts state changes by target state.
    BookingTransitions = factory.NewCounterVec(prometheus.CounterOpts{
        Name: "bookable_booking_transitions_total",
        Help: "Booking state transitions by target state.",
    }, []string{"state"})

    // WaitlistPromotions counts waitlisted bookings moved to confirmed.
    // mode is "auto" for cancellation driven promotion and "manual" for
    // the administrator override.
    WaitlistPromotions = factory.NewCounterVec(prometheus.CounterOpts{
        Name: "bookable_waitlist_promotions_total",
        Help: "Waitlisted bookings promoted to confirmed.",
    }, []string{"mode"})

    // EventPublishFailures counts booking events the broker did not accept.
    EventPublishFailures = factory.NewCounter(prometheus.CounterOpts{
        Name: "bookable_event_publish_failures_total",
        Help: "Booking events that could not be published.",
    })
)

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
    return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
