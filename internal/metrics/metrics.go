package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_decisions_total",
			Help: "Auction decisions by result and no-bid reason",
		},
		[]string{"result", "reason"}, // bid|nobid, reason or ""
	)

	DecisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bidder_decision_duration_seconds",
			Help:    "Time from request receipt to decision",
			Buckets: []float64{.0005, .001, .002, .005, .01, .02, .05, .1},
		},
	)

	DeadlineMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_deadline_misses_total",
			Help: "Auctions that hit their deadline before deciding",
		},
	)

	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_reservations_total",
			Help: "Budget reservation transitions",
		},
		[]string{"outcome"}, // reserved|rejected|confirmed|released|expired
	)

	OutstandingReservations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bidder_outstanding_reservations",
			Help: "Reservations currently pending a win or loss",
		},
	)

	LedgerCorruptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_ledger_corruptions_total",
			Help: "Campaigns frozen after an accounting invariant violation",
		},
		[]string{"campaign"},
	)

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_outcomes_total",
			Help: "Win and loss notifications by type and result",
		},
		[]string{"type", "result"}, // win|loss, ok|late|error
	)
)

func init() {
	prometheus.MustRegister(DecisionsTotal)
	prometheus.MustRegister(DecisionDuration)
	prometheus.MustRegister(DeadlineMisses)
	prometheus.MustRegister(ReservationsTotal)
	prometheus.MustRegister(OutstandingReservations)
	prometheus.MustRegister(LedgerCorruptions)
	prometheus.MustRegister(OutcomesTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
