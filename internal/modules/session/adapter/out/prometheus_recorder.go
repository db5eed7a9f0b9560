package out

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	reconciled prometheus.Counter
}

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "habitkit",
			Name:      "session_operations_total",
			Help:      "Session lifecycle operations by outcome.",
		}, []string{"operation", "outcome"}),
		reconciled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "habitkit",
			Name:      "sessions_reconciled_total",
			Help:      "Active sessions removed because a reflection already completed them.",
		}),
	}
}

func (r *PrometheusRecorder) ObserveOperation(operation, outcome string) {
	r.operations.WithLabelValues(operation, outcome).Inc()
}

func (r *PrometheusRecorder) ObserveReconciled(count int) {
	if count > 0 {
		r.reconciled.Add(float64(count))
	}
}
