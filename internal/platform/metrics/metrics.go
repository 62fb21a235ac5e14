package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はアプリケーションが公開する Prometheus メトリクスを保持します。
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	CompaniesCreated prometheus.Counter
	CompaniesUpdated prometheus.Counter
}

// New は専用レジストリにメトリクスを登録して返します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CompaniesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "companies_created_total",
			Help: "Total number of companies created",
		}),
		CompaniesUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "companies_updated_total",
			Help: "Total number of companies updated",
		}),
	}
}

// Handler は /metrics 用の HTTP ハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest は HTTP リクエスト 1 件分を記録します。
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// IncCompaniesCreated は会社作成数を 1 増やします。
func (m *Metrics) IncCompaniesCreated() {
	m.CompaniesCreated.Inc()
}

// IncCompaniesUpdated は会社更新数を 1 増やします。
func (m *Metrics) IncCompaniesUpdated() {
	m.CompaniesUpdated.Inc()
}
