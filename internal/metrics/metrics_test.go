package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveDiffusion("own", 3, 10)
	r.ObserveVisibility(10, 100)
	r.ObserveUpdate("attacker", 0.5)
	r.RejectUpdate("attacker")
	r.ObserveAction("attacker", "explore")
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveDiffusion("goal", 3, 25)
	r.ObserveDiffusion("goal", 1, 25)
	r.ObserveUpdate("attacker", 0.2)
	r.ObserveUpdate("attacker", -0.2)
	r.RejectUpdate("attacker")
	r.ObserveVisibility(50, 400)

	assert.Equal(t, 4.0, testutil.ToFloat64(r.diffusionPasses.WithLabelValues("goal")))
	assert.Equal(t, 25.0, testutil.ToFloat64(r.fieldCells.WithLabelValues("goal")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.updatesTotal.WithLabelValues("attacker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.updatesRejected.WithLabelValues("attacker")))
	assert.Equal(t, 50.0, testutil.ToFloat64(r.visibilitySamples))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
