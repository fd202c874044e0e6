// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to get metric value from a gauge
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := gauge.Write(metric)
	require.NoError(t, err)
	return metric.GetGauge().GetValue()
}

// Helper function to get metric value from a counter
func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := counter.Write(metric)
	require.NoError(t, err)
	return metric.GetCounter().GetValue()
}

func TestIncAuditIncrementsExactSeries(t *testing.T) {
	counter := auditsTotal.WithLabelValues("watch", "success")
	before := getCounterValue(t, counter)

	IncAudit("watch", "success")
	IncAudit("watch", "success")

	assert.Equal(t, before+2, getCounterValue(t, counter))

	// The sibling series stays untouched.
	other := auditsTotal.WithLabelValues("watch", "failure")
	otherBefore := getCounterValue(t, other)
	IncAudit("watch", "success")
	assert.Equal(t, otherBefore, getCounterValue(t, other))
}

func TestSetAuditLastSuccess(t *testing.T) {
	SetAuditLastSuccess(1700000123)
	assert.Equal(t, float64(1700000123), getGaugeValue(t, auditLastSuccess))

	SetAuditLastSuccess(1700000999)
	assert.Equal(t, float64(1700000999), getGaugeValue(t, auditLastSuccess))
}

func TestRecordManifestFindingsSetsAllSeverities(t *testing.T) {
	RecordManifestFindings("pins.txt", 4, 2, 1)

	assert.Equal(t, 4.0, getGaugeValue(t, manifestFindings.WithLabelValues("pins.txt", "error")))
	assert.Equal(t, 2.0, getGaugeValue(t, manifestFindings.WithLabelValues("pins.txt", "warning")))
	assert.Equal(t, 1.0, getGaugeValue(t, manifestFindings.WithLabelValues("pins.txt", "info")))

	// Gauges track the latest run, so a clean follow-up resets them.
	RecordManifestFindings("pins.txt", 0, 0, 0)
	assert.Equal(t, 0.0, getGaugeValue(t, manifestFindings.WithLabelValues("pins.txt", "error")))
}

func TestManifestGaugesArePerManifest(t *testing.T) {
	RecordManifestPackages("a.txt", 7)
	RecordManifestPackages("b.txt", 11)

	assert.Equal(t, 7.0, getGaugeValue(t, manifestPackages.WithLabelValues("a.txt")))
	assert.Equal(t, 11.0, getGaugeValue(t, manifestPackages.WithLabelValues("b.txt")))
}

func TestIncAuditStageFailure(t *testing.T) {
	counter := auditStageFailures.WithLabelValues("licenses")
	before := getCounterValue(t, counter)

	IncAuditStageFailure("licenses")

	assert.Equal(t, before+1, getCounterValue(t, counter))
}
