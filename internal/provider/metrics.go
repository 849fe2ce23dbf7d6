package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tvp-go/internal/tv"
)

// Metrics counts store activity. A nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	notifications prometheus.Counter
	logoTasks     *prometheus.CounterVec
}

// NewMetrics creates the store counters and registers them on reg. A nil reg
// creates unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tvp_operations_total",
			Help: "Store operations by table, operation and outcome.",
		}, []string{"table", "op", "outcome"}),
		notifications: f.NewCounter(prometheus.CounterOpts{
			Name: "tvp_notifications_total",
			Help: "Change notifications delivered after commit.",
		}),
		logoTasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tvp_logo_tasks_total",
			Help: "Completed logo tasks by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeOperation(table string, op Op, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(table, op.String(), outcome(err)).Inc()
}

func (m *Metrics) observeNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

func (m *Metrics) observeLogoTask(err error) {
	if m == nil {
		return
	}
	m.logoTasks.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case tv.ErrNotFound.Has(err):
		return "not_found"
	case tv.ErrInvalidArgument.Has(err):
		return "invalid_argument"
	case tv.ErrPermissionDenied.Has(err):
		return "permission_denied"
	case tv.ErrUnsupported.Has(err):
		return "unsupported"
	case tv.ErrDecode.Has(err):
		return "decode_failure"
	case tv.ErrStorage.Has(err):
		return "storage"
	}
	return "error"
}
