package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
// nil の *Metrics に対する記録メソッドは何もしない
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 座席操作の総数（operation: hold/release/confirm, result: success/conflict/expired/not_found/contention/invalid/error）
	SeatOperationsTotal *prometheus.CounterVec

	// 期限切れ掃除の実行回数（status: success/skipped/error）
	SweepRunsTotal *prometheus.CounterVec

	// 期限切れ掃除で解放した座席数
	SweepReleasedSeatsTotal prometheus.Counter

	// 注文確定の総数（status: paid/declined/rejected/reconciliation_failed）
	OrdersTotal *prometheus.CounterVec

	// 決済サービス呼び出しの所要時間（provider, status: success/declined/error）
	PaymentDuration *prometheus.HistogramVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SeatOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_operations_total",
				Help: "Total number of seat hold/release/confirm operations",
			},
			[]string{"operation", "result"},
		),
		SweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweep_runs_total",
				Help: "Total number of expired hold sweeps",
			},
			[]string{"status"},
		),
		SweepReleasedSeatsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sweep_released_seats_total",
				Help: "Total number of seats released by the expiry sweeper",
			},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_total",
				Help: "Total number of order finalization attempts",
			},
			[]string{"status"},
		),
		PaymentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_duration_seconds",
				Help:    "Time spent calling the payment provider",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"provider", "status"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatOperationsTotal,
		m.SweepRunsTotal,
		m.SweepReleasedSeatsTotal,
		m.OrdersTotal,
		m.PaymentDuration,
		m.DistributedLockDuration,
	)

	return m
}

// HTTPRequest はHTTPリクエストの件数とレイテンシを記録する
func (m *Metrics) HTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// SeatOperation は座席操作の結果を記録する
func (m *Metrics) SeatOperation(operation, result string) {
	if m == nil {
		return
	}
	m.SeatOperationsTotal.WithLabelValues(operation, result).Inc()
}

// Sweep は期限切れ掃除の結果を記録する
func (m *Metrics) Sweep(status string, released int) {
	if m == nil {
		return
	}
	m.SweepRunsTotal.WithLabelValues(status).Inc()
	if released > 0 {
		m.SweepReleasedSeatsTotal.Add(float64(released))
	}
}

// Order は注文確定の結果を記録する
func (m *Metrics) Order(status string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(status).Inc()
}

// Payment は決済サービス呼び出しの所要時間を記録する
func (m *Metrics) Payment(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PaymentDuration.WithLabelValues(provider, status).Observe(d.Seconds())
}

// Lock は分散ロック操作の所要時間を記録する
func (m *Metrics) Lock(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
