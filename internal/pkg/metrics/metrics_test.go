package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	// 各テストで新しいレジストリを使用
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.SeatOperationsTotal)
	assert.NotNil(t, m.SweepRunsTotal)
	assert.NotNil(t, m.SweepReleasedSeatsTotal)
	assert.NotNil(t, m.OrdersTotal)
	assert.NotNil(t, m.PaymentDuration)
	assert.NotNil(t, m.DistributedLockDuration)
}

func TestNewWithRegistry_DuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegistry(reg)

	assert.Panics(t, func() { NewWithRegistry(reg) })
}

func TestHTTPRequest(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.HTTPRequest("POST", "/api/v1/seats/hold", 200, 10*time.Millisecond)
	m.HTTPRequest("POST", "/api/v1/seats/hold", 409, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/seats/hold", "409")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestSeatOperation(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.SeatOperation("hold", "success")
	m.SeatOperation("hold", "success")
	m.SeatOperation("hold", "conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SeatOperationsTotal.WithLabelValues("hold", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeatOperationsTotal.WithLabelValues("hold", "conflict")))
}

func TestSweep(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.Sweep("success", 3)
	m.Sweep("success", 0)
	m.Sweep("error", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweepReleasedSeatsTotal))
}

func TestOrderAndPayment(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.Order("paid")
	m.Order("reconciliation_required")
	m.Payment("tappay", "success", 120*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersTotal.WithLabelValues("reconciliation_required")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "payment_duration_seconds" {
			found = true
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SeatOperation("hold", "success")
		m.Sweep("success", 1)
		m.Order("paid")
		m.Payment("stripe", "declined", time.Second)
		m.Lock("acquire", "success", time.Millisecond)
		m.HTTPRequest("GET", "/api/v1/health", 200, time.Millisecond)
	})
}
