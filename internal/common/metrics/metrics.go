package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Total number of wizard step transitions",
		},
		[]string{"from", "to", "direction"},
	)

	WizardGateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_gate_rejections_total",
			Help: "Total number of transitions blocked by a step gate or the transition table",
		},
		[]string{"step", "reason"},
	)

	WizardSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_active",
			Help: "Number of live wizard sessions",
		},
	)

	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_collaborator_calls_total",
			Help: "Total number of collaborator calls by outcome",
		},
		[]string{"collaborator", "status"},
	)

	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "wizard_collaborator_duration_seconds",
			Help: "Duration of collaborator calls in seconds",
		},
		[]string{"collaborator"},
	)

	StaleResponsesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_stale_responses_dropped_total",
			Help: "Responses ignored because their step was no longer active",
		},
		[]string{"action"},
	)

	DealsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_deals_submitted_total",
			Help: "Total number of deals created from the wizard",
		},
		[]string{"branch"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)

// ObserveCollaborator records one collaborator call.
func ObserveCollaborator(collaborator string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CollaboratorCalls.WithLabelValues(collaborator, status).Inc()
	CollaboratorDuration.WithLabelValues(collaborator).Observe(seconds)
}
