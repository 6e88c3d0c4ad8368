package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if c := out.GetCounter(); c != nil {
		return c.GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestSupervisorCollectors(t *testing.T) {
	m := NewSupervisor()

	m.FramesReceived.Inc()
	m.FramesReceived.Inc()
	m.FramesImproved.Inc()
	m.BestDeletions.Set(2)

	assert.Equal(t, float64(2), metricValue(t, m.FramesReceived))
	assert.Equal(t, float64(1), metricValue(t, m.FramesImproved))
	assert.Equal(t, float64(0), metricValue(t, m.FramesSkipped))
	assert.Equal(t, float64(2), metricValue(t, m.BestDeletions))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestGeneratorCollectors(t *testing.T) {
	m := NewGenerator()

	m.Candidates.Inc()
	m.FramesSubmitted.Inc()

	assert.Equal(t, float64(1), metricValue(t, m.Candidates))
	assert.Equal(t, float64(1), metricValue(t, m.FramesSubmitted))
	assert.Equal(t, float64(0), metricValue(t, m.SubmitFailures))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewSupervisor()
	b := NewSupervisor()
	a.FramesReceived.Inc()
	assert.Equal(t, float64(0), metricValue(t, b.FramesReceived))
}
