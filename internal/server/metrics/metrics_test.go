package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SessionIssued("login")
	m.SessionIssued("refresh")
	m.SessionIssued("refresh")
	m.Refresh("replay")
	m.ConfirmationEmail("throttled")
	m.Confirmation("confirmed")
	m.ApiKey("issued")
	m.Throttled("login")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsIssued.WithLabelValues("login")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsIssued.WithLabelValues("refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshOutcomes.WithLabelValues("replay")))

	expected := `
# HELP credgate_api_keys_operations_total API key operations, by kind.
# TYPE credgate_api_keys_operations_total counter
credgate_api_keys_operations_total{op="issued"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "credgate_api_keys_operations_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionIssued("login")
		m.Refresh("rotated")
		m.ConfirmationEmail("sent")
		m.Confirmation("confirmed")
		m.ApiKey("revoked")
		m.Throttled("register")
	})
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
