package backend

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recording backend calls
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the backend collectors and registers them with registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "composer_backend_requests_total",
			Help: "Backend requests by host and response status, status is \"error\" for failed calls",
		}, []string{"host", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "composer_backend_request_duration_seconds",
			Help:    "Latency of backend requests by host",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
	}

	registerer.MustRegister(m.requests, m.duration)

	return m
}

// Instrumented returns a decorator recording every call in m
func Instrumented(m *Metrics) Decorator {
	return func(next Client) Client {
		return ClientFunc(func(req *http.Request) (*Response, error) {
			start := time.Now()
			res, err := next.Send(req)

			host := req.URL.Host
			m.duration.WithLabelValues(host).Observe(time.Since(start).Seconds())

			status := "error"
			if err == nil && res != nil {
				status = strconv.Itoa(res.StatusCode)
			}
			m.requests.WithLabelValues(host, status).Inc()

			return res, err
		})
	}
}
