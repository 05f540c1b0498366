package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg, "wlan0")

	r.ObserveTransition("idle", "discovering")
	r.ObserveTransition("idle", "discovering")
	r.ObserveScanVerdict("reject")
	r.SetLinks(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.transitions.WithLabelValues("idle", "discovering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scanVerdicts.WithLabelValues("reject")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.links))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveTransition("a", "b")
		r.ObserveDiscovery()
		r.SetPeers(3)
	})
}
