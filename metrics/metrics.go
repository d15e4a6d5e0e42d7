package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the registration service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SubmissionsCreated  prometheus.Counter
	SubmissionsRejected prometheus.Counter
	SubmissionsDeleted  prometheus.Counter
	FieldChanges        *prometheus.CounterVec
	ReorderPairs        *prometheus.CounterVec
	Exports             *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SubmissionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "registration_submissions_created_total",
			Help: "Registrations stored",
		}),
		SubmissionsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "registration_submissions_rejected_total",
			Help: "Registrations refused for missing or malformed answers",
		}),
		SubmissionsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "registration_submissions_deleted_total",
			Help: "Registrations deleted by an administrator",
		}),
		FieldChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_field_changes_total",
			Help: "Field definition changes by operation",
		}, []string{"op"}),
		ReorderPairs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_reorder_pairs_total",
			Help: "Reorder pairs applied or failed",
		}, []string{"result"}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_exports_total",
			Help: "Submission exports by format",
		}, []string{"format"}),
	}
}

func (m *Metrics) SubmissionCreated() {
	if m != nil {
		m.SubmissionsCreated.Inc()
	}
}

func (m *Metrics) SubmissionRejected() {
	if m != nil {
		m.SubmissionsRejected.Inc()
	}
}

func (m *Metrics) SubmissionDeleted() {
	if m != nil {
		m.SubmissionsDeleted.Inc()
	}
}

func (m *Metrics) FieldChanged(op string) {
	if m != nil {
		m.FieldChanges.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) FieldsReordered(applied, failed int) {
	if m != nil {
		m.ReorderPairs.WithLabelValues("applied").Add(float64(applied))
		m.ReorderPairs.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *Metrics) Exported(format string) {
	if m != nil {
		m.Exports.WithLabelValues(format).Inc()
	}
}
