// Package metrics expone en Prometheus el resultado de los flujos identidad ↔ perfil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/kds-identity-api/internal/application/identity"
)

// Resultados de compensación.
const (
	CompensationDeleted = "deleted"
	CompensationFailed  = "failed"
	CompensationLost    = "lost"
)

var _ identity.SagaRecorder = (*SagaMetrics)(nil)

// SagaMetrics contadores de sagas y compensaciones.
type SagaMetrics struct {
	sagas         *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewSagaMetrics registra los contadores en registerer (nil = registro por defecto).
func NewSagaMetrics(registerer prometheus.Registerer) *SagaMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &SagaMetrics{
		sagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_saga_total",
			Help: "Flujos de registro, activación y reconciliación por resultado.",
		}, []string{"flow", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_compensations_total",
			Help: "Borrados de identidad tras un fallo del perfil local, por resultado.",
		}, []string{"result"}),
	}
	registerer.MustRegister(m.sagas, m.compensations)
	return m
}

// SagaFinished implementa identity.SagaRecorder.
func (m *SagaMetrics) SagaFinished(flow, outcome string) {
	m.sagas.WithLabelValues(flow, outcome).Inc()
	if result := CompensationResult(outcome); result != "" {
		m.compensations.WithLabelValues(result).Inc()
	}
}

// CompensationResult etiqueta de compensación para un outcome; vacío si no hubo compensación.
func CompensationResult(outcome string) string {
	switch outcome {
	case identity.OutcomeCompensated:
		return CompensationDeleted
	case identity.OutcomeOrphaned:
		return CompensationFailed
	case identity.OutcomeOrphanLost:
		return CompensationLost
	}
	return ""
}
