package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowmap_sync_cycles_total",
		Help: "Synchronization cycles by outcome.",
	}, []string{"result"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowmap_sync_cycle_duration_seconds",
		Help:    "Wall time of one synchronization cycle.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	pendingReview = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowmap_pending_review_total",
		Help: "Steps flagged for human review since startup.",
	})

	consecutiveErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowmap_consecutive_errors",
		Help: "Consecutive failed cycles; resets on any success.",
	})
)

func recordCycle(result string) {
	cyclesTotal.WithLabelValues(result).Inc()
}

func observeCycle(d time.Duration) {
	cycleDuration.Observe(d.Seconds())
}

func updateGauges(st State) {
	pendingReview.Set(float64(st.PendingReviewTotal))
	consecutiveErrors.Set(float64(st.ConsecutiveErrors))
}
