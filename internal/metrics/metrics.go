// Package metrics holds the Prometheus collectors for the API client and the
// reference backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client instruments outbound API calls. A nil *Client records nothing.
type Client struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

func NewClient(reg prometheus.Registerer) *Client {
	f := promauto.With(reg)
	return &Client{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sideway",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by endpoint and response status.",
		}, []string{"endpoint", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sideway",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sideway",
			Subsystem: "client",
			Name:      "attendance_outcomes_total",
			Help:      "Attendance submissions by classified outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveRequest records one round trip. status 0 means the request never got a response.
func (m *Client) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(endpoint, label).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Client) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// Server instruments the reference backend. A nil *Server records nothing.
type Server struct {
	logins   *prometheus.CounterVec
	checkins *prometheus.CounterVec
}

func NewServer(reg prometheus.Registerer) *Server {
	f := promauto.With(reg)
	return &Server{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sideway",
			Subsystem: "server",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		checkins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sideway",
			Subsystem: "server",
			Name:      "checkins_total",
			Help:      "Attendance check-ins by result.",
		}, []string{"result"}),
	}
}

func (m *Server) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Server) CheckIn(result string) {
	if m == nil {
		return
	}
	m.checkins.WithLabelValues(result).Inc()
}
