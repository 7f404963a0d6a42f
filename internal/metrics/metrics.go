// Package metrics provides Prometheus instrumentation for the Hot Potato
// settlement engine: HTTP middleware (grounded directly on the teacher
// codebase's metrics.go) plus a Sink that updates counters and gauges
// straight from emitted engine.Event values.
package metrics

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DenhamPreen/hot-potato/internal/engine"
)

var (
	// TakesTotal counts entry attempts recorded by the Entry Controller.
	TakesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotpotato_takes_total",
		Help: "Total number of potato takes recorded",
	})

	// SettlesTotal counts settlements, partitioned by outcome.
	SettlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotpotato_settles_total",
		Help: "Total number of settlements, by outcome",
	}, []string{"outcome"})

	// RoundsEndedTotal counts finalized (Lose path) rounds.
	RoundsEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotpotato_rounds_ended_total",
		Help: "Total number of rounds that reached the Lose path",
	})

	// ParticipantPayoutFailuresTotal counts best-effort participant
	// transfers that failed during round finalisation.
	ParticipantPayoutFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotpotato_participant_payout_failures_total",
		Help: "Total number of failed per-participant payouts",
	})

	// SponsorRefundFailuresTotal counts failed incumbent-sponsor refunds.
	SponsorRefundFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotpotato_sponsor_refund_failures_total",
		Help: "Total number of failed sponsor refunds on replacement",
	})

	// PotBalance tracks the last-known accounted pot balance, in wei. It
	// is reported as a float64 for Prometheus's sake; 256-bit wei amounts
	// lose precision above 2^53, which is acceptable for a dashboard
	// gauge (the engine's own accounting never goes through this path).
	PotBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotpotato_pot_balance_wei",
		Help: "Last-known accounted pot balance, in wei",
	})

	// CurrentEntryPrice tracks the entry price carried by the latest
	// NewHolder event; it is not reset when a round ends.
	CurrentEntryPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotpotato_current_entry_price_wei",
		Help: "Current cost to take the potato, in wei",
	})

	// CurrentRoundID tracks the round id carried by the latest event that
	// has one; after a round ends it keeps the ended round's id until an
	// event of the next round arrives.
	CurrentRoundID = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotpotato_current_round_id",
		Help: "Currently active round id",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotpotato_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotpotato_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotpotato_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Sink implements engine.Sink, updating the counters and gauges above
// directly from emitted domain events. It never fails or blocks the
// settlement operation that produced the event.
type Sink struct{}

// NewSink constructs a metrics Sink.
func NewSink() Sink { return Sink{} }

func (Sink) Publish(e engine.Event) {
	switch e.Kind {
	case engine.KindTake:
		TakesTotal.Inc()
	case engine.KindSettle:
		outcome := "lose"
		if e.Win {
			outcome = "win"
		}
		SettlesTotal.WithLabelValues(outcome).Inc()
	case engine.KindRoundEnded:
		RoundsEndedTotal.Inc()
	case engine.KindParticipantPayoutFailed:
		ParticipantPayoutFailuresTotal.Inc()
	case engine.KindSponsorRefundFailed:
		SponsorRefundFailuresTotal.Inc()
	case engine.KindNewHolder:
		if e.NewPrice != nil {
			CurrentEntryPrice.Set(uint256ToFloat64(e.NewPrice))
		}
	case engine.KindPotUpdated:
		if e.NewPot != nil {
			PotBalance.Set(uint256ToFloat64(e.NewPot))
		}
	}
	if e.RoundID != 0 {
		CurrentRoundID.Set(float64(e.RoundID))
	}
}

// uint256ToFloat64 converts a wei amount to a float64 for gauge reporting
// only; it loses precision above 2^53 and must never feed back into the
// engine's own accounting.
func uint256ToFloat64(v *uint256.Int) float64 {
	f := new(big.Float).SetInt(v.ToBig())
	out, _ := f.Float64()
	return out
}
