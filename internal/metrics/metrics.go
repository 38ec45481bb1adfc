// Package metrics exposes the Prometheus instruments for the derived-state
// consistency layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cascade outcome labels.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	// CascadeOutcomes counts cascade invocations per trigger type and outcome.
	CascadeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livestock",
		Subsystem: "cascade",
		Name:      "outcomes_total",
		Help:      "Cascade invocations by trigger type and outcome.",
	}, []string{"trigger", "outcome"})

	// BackfillRepairs counts trigger records repaired by the backfill sweep.
	BackfillRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livestock",
		Subsystem: "cascade",
		Name:      "backfill_repairs_total",
		Help:      "Trigger records whose cascade was completed by the backfill sweep.",
	}, []string{"trigger"})

	// ImportRows counts bulk import rows by outcome.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livestock",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Bulk import rows by outcome.",
	}, []string{"outcome"})
)
