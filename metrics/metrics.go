// Package metrics provides Prometheus observability metrics for the shift scheduler.
// It includes Critical and Important metrics for business and operational visibility.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	schederrors "shift-scheduler/errors"
	"shift-scheduler/models"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// CRITICAL METRICS - Business Impact Visibility
// =============================================================================

// SlotsRequested tracks the worker-hour slots generated from demand in the last run.
var SlotsRequested = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "slots_requested",
	Help:      "Number of worker-hour slots generated from predicted demand",
})

// SlotsAssigned tracks slots committed to a worker.
var SlotsAssigned = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "slots_assigned",
	Help:      "Number of slots committed to a worker",
})

// SlotsUnmet tracks slots no eligible worker could take.
// High values indicate staffing issues.
var SlotsUnmet = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "slots_unmet",
	Help:      "Number of slots left open because no eligible worker was available",
})

// CoverageRatio is assigned / requested for the last run.
var CoverageRatio = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "coverage_ratio",
	Help:      "Share of requested slots that were assigned",
})

// FixedSlotsUnmet tracks fixed slots (LEVEL3 worker only) left open.
var FixedSlotsUnmet = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "fixed_slots_unmet",
	Help:      "Number of fixed slots left open",
})

// HoursWithUnmetSlots tracks number of hours where at least one slot stayed open.
var HoursWithUnmetSlots = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "hours_with_unmet_slots",
	Help:      "Number of hours where demand exceeded eligible workers",
})

// UnmetByTier tracks open slots by required tier.
var UnmetByTier = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "unmet_slots_by_tier",
	Help:      "Open slots broken down by required tier",
}, []string{"tier"})

// AssignedByWindow tracks committed slots by time window.
var AssignedByWindow = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "assigned_slots_by_window",
	Help:      "Committed slots broken down by time window",
}, []string{"window"})

// WorkersTiered tracks the size of each window's tiered pool.
var WorkersTiered = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "workers_tiered",
	Help:      "Workers ranked into a window's pool, by window and tier",
}, []string{"window", "tier"})

// =============================================================================
// IMPORTANT METRICS - Operational Health
// =============================================================================

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks total records successfully parsed.
var ParserRecordsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total CSV records successfully parsed",
}, []string{"input"})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse CSV input file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// SchedulerDurationSeconds tracks time to compute assignments.
var SchedulerDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scheduler",
	Name:      "duration_seconds",
	Help:      "Time taken to compute the day's assignments",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
})

// SchedulerWorkersProcessed tracks roster size per scheduling run.
var SchedulerWorkersProcessed = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scheduler",
	Name:      "workers_processed",
	Help:      "Number of roster workers processed per scheduling run",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
})

// RunsTotal counts scheduling runs by outcome.
var RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scheduler",
	Name:      "runs_total",
	Help:      "Scheduling runs by outcome",
}, []string{"outcome"})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetSchedulerGauges resets all scheduler gauges before a new scheduling run.
func ResetSchedulerGauges() {
	SlotsRequested.Set(0)
	SlotsAssigned.Set(0)
	SlotsUnmet.Set(0)
	CoverageRatio.Set(0)
	FixedSlotsUnmet.Set(0)
	HoursWithUnmetSlots.Set(0)
	UnmetByTier.Reset()
	AssignedByWindow.Reset()
	WorkersTiered.Reset()
}

// RecordPlan publishes the outcome of a successful run.
func RecordPlan(plan *models.Plan, workers int, took time.Duration) {
	ResetSchedulerGauges()

	SlotsRequested.Set(float64(plan.Requested))
	SlotsAssigned.Set(float64(len(plan.Assignments)))
	SlotsUnmet.Set(float64(len(plan.Unmet)))
	CoverageRatio.Set(plan.Coverage())

	for _, a := range plan.Assignments {
		AssignedByWindow.WithLabelValues(a.Window.String()).Inc()
	}
	for win, size := range plan.Pools {
		for _, tier := range models.Tiers {
			WorkersTiered.WithLabelValues(win.String(), tier.String()).Set(float64(size.Count(tier)))
		}
	}

	hours := make(map[int]bool)
	fixed := 0
	for _, u := range plan.Unmet {
		UnmetByTier.WithLabelValues(u.Tier.String()).Inc()
		hours[u.Hour] = true
		if u.Fixed {
			fixed++
		}
	}
	FixedSlotsUnmet.Set(float64(fixed))
	HoursWithUnmetSlots.Set(float64(len(hours)))

	SchedulerDurationSeconds.Observe(took.Seconds())
	SchedulerWorkersProcessed.Observe(float64(workers))
	RunsTotal.WithLabelValues("success").Inc()
}

// RecordRunFailure counts a run rejected before any assignment was made.
func RecordRunFailure() {
	RunsTotal.WithLabelValues("rejected").Inc()
}

// RecordParse observes one input file parse. err may be nil.
func RecordParse(input string, records int, took time.Duration, err error) {
	ParserDurationSeconds.Observe(took.Seconds())
	if err != nil {
		ParserErrorsTotal.WithLabelValues(ParseErrorType(err)).Inc()
		return
	}
	ParserRecordsTotal.WithLabelValues(input).Add(float64(records))
}

// ParseErrorType maps a parse error onto a low-cardinality label.
func ParseErrorType(err error) string {
	switch {
	case errors.Is(err, schederrors.ErrInvalidFieldCount):
		return "field_count"
	case errors.Is(err, schederrors.ErrInvalidHour):
		return "hour"
	case errors.Is(err, schederrors.ErrInvalidCount):
		return "count"
	case errors.Is(err, schederrors.ErrInvalidCode):
		return "code"
	case errors.Is(err, schederrors.ErrInvalidJoinDate):
		return "join_date"
	case errors.Is(err, schederrors.ErrInvalidPreferredHour):
		return "preferred_hour"
	default:
		return "other"
	}
}
