package api

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded in checkin_api_requests_total.
const (
	outcomeSuccess = "success"
	outcomeLogical = "api_error"
	outcomeServer  = "server_error"
	outcomeNetwork = "network_error"
	outcomeSetup   = "setup_error"
)

// otherCode labels error codes outside the known set.
const otherCode = "other"

// Metrics holds the client's Prometheus collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Errors   *prometheus.CounterVec

	codes map[string]struct{}
}

// NewMetrics creates the collectors and registers them on reg.
//
// The code label of checkin_api_errors_total is limited to the client's own
// codes plus knownCodes; any other backend code is recorded as "other".
func NewMetrics(reg prometheus.Registerer, knownCodes ...string) (*Metrics, error) {
	codes := map[string]struct{}{
		CodeServerError:  {},
		CodeNetworkError: {},
		CodeUnknownError: {},
	}
	for _, c := range knownCodes {
		codes[c] = struct{}{}
	}

	m := &Metrics{
		codes: codes,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_api_requests_total",
			Help: "Backend API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkin_api_request_duration_seconds",
			Help:    "Backend API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_api_errors_total",
			Help: "Failed backend API requests by error code.",
		}, []string{"code"}),
	}

	for _, c := range []prometheus.Collector{m.Requests, m.Duration, m.Errors} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// observe is a no-op on a nil receiver.
func (m *Metrics) observe(method, outcome, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
	m.Duration.WithLabelValues(method).Observe(d.Seconds())
	if code != "" {
		m.Errors.WithLabelValues(m.codeLabel(code)).Inc()
	}
}

func (m *Metrics) codeLabel(code string) string {
	if _, ok := m.codes[code]; ok {
		return code
	}
	return otherCode
}
