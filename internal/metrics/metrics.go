package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for client operations.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	TransportErrors   *prometheus.CounterVec
	TokenRequests     *prometheus.CounterVec
	TokenDurationMs   prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
}

// New registers and returns client metrics collectors on reg. A nil reg uses
// a private registry so that several clients can coexist in one process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exstream_client_requests_total",
			Help: "Total number of backend requests by service, method and status code",
		}, []string{"service", "method", "code"}),
		RequestDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exstream_client_request_duration_ms",
			Help:    "Duration of backend requests in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"service", "method"}),
		TransportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exstream_client_transport_errors_total",
			Help: "Total number of requests that failed below the HTTP layer",
		}, []string{"service"}),
		TokenRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exstream_client_token_requests_total",
			Help: "Total number of identity token requests by grant and outcome",
		}, []string{"grant", "outcome"}),
		TokenDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "exstream_client_token_duration_ms",
			Help:    "Duration of identity token requests in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exstream_client_cache_lookups_total",
			Help: "Total number of response cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRequest(service, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}

	m.Requests.WithLabelValues(service, method, strconv.Itoa(statusCode)).Inc()
	m.RequestDurationMs.WithLabelValues(service, method).Observe(float64(duration.Milliseconds()))
}

func (m *Metrics) IncrementTransportErrors(service string) {
	if m == nil {
		return
	}

	m.TransportErrors.WithLabelValues(service).Inc()
}

func (m *Metrics) ObserveTokenRequest(grant string, success bool, duration time.Duration) {
	if m == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "failure"
	}

	m.TokenRequests.WithLabelValues(grant, outcome).Inc()
	m.TokenDurationMs.Observe(float64(duration.Milliseconds()))
}

func (m *Metrics) IncrementCacheLookup(hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	m.CacheLookups.WithLabelValues(result).Inc()
}
