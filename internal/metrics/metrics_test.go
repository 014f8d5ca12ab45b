package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	m := New()

	m.PipesOpened.Inc()
	m.BytesReceived.Add(42)
	m.Searches.WithLabelValues("found").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipesOpened))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.BytesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues("found")))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "aqualess_pipes_opened_total")
	assert.Contains(t, names, "aqualess_bytes_received_total")
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.PipesActive.Set(3)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PipesActive))
}
