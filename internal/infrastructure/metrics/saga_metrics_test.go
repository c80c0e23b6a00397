package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/kds-identity-api/internal/application/identity"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

func TestCompensationResult(t *testing.T) {
	cases := map[string]string{
		identity.OutcomeSuccess:     "",
		identity.OutcomeRejected:    "",
		identity.OutcomeCompensated: CompensationDeleted,
		identity.OutcomeOrphaned:    CompensationFailed,
		identity.OutcomeOrphanLost:  CompensationLost,
	}
	for outcome, want := range cases {
		assert.Equal(t, want, CompensationResult(outcome), outcome)
	}
}

func TestSagaFinished_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSagaMetrics(reg)

	m.SagaFinished(entity.FlowRegister, identity.OutcomeSuccess)
	m.SagaFinished(entity.FlowRegister, identity.OutcomeSuccess)
	m.SagaFinished(entity.FlowActivate, identity.OutcomeCompensated)
	m.SagaFinished(entity.FlowRegister, identity.OutcomeOrphaned)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sagas.WithLabelValues(entity.FlowRegister, identity.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagas.WithLabelValues(entity.FlowActivate, identity.OutcomeCompensated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues(CompensationDeleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues(CompensationFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.compensations.WithLabelValues(CompensationLost)))
}
