// Package metrics owns the Prometheus registry and the collectors that are
// not tied to a single package.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is created once at startup and passed to the components that record.
type Metrics struct {
	Registry *prometheus.Registry

	loginAttempts   *prometheus.CounterVec
	passwordChanges *prometheus.CounterVec
	flashRejected   prometheus.Counter
	subscriptions   *prometheus.CounterVec
	newsletters     *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New builds a registry with Go runtime and process collectors plus the
// application collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		passwordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "auth",
			Name:      "password_changes_total",
			Help:      "Password change attempts by outcome.",
		}, []string{"outcome"}),
		flashRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "flash",
			Name:      "rejected_total",
			Help:      "Signed messages that failed verification.",
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "subscriptions",
			Name:      "requests_total",
			Help:      "Subscription requests by outcome.",
		}, []string{"outcome"}),
		newsletters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "newsletter",
			Name:      "issues_total",
			Help:      "Newsletter publish runs by outcome.",
		}, []string{"outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "newsletter",
			Name:      "deliveries_total",
			Help:      "Per-recipient newsletter deliveries by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "herald",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.loginAttempts, m.passwordChanges, m.flashRejected,
		m.subscriptions, m.newsletters, m.deliveries,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// LoginAttempt counts one login by outcome label.
func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// PasswordChange counts one change-password submission by outcome label.
func (m *Metrics) PasswordChange(outcome string) {
	if m == nil {
		return
	}
	m.passwordChanges.WithLabelValues(outcome).Inc()
}

// FlashRejected counts a signed message that did not verify.
func (m *Metrics) FlashRejected() {
	if m == nil {
		return
	}
	m.flashRejected.Inc()
}

// Subscription counts one POST /subscriptions by outcome label.
func (m *Metrics) Subscription(outcome string) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(outcome).Inc()
}

// NewsletterIssue counts one publish run and its per-recipient results.
func (m *Metrics) NewsletterIssue(outcome string, sent, skipped int) {
	if m == nil {
		return
	}
	m.newsletters.WithLabelValues(outcome).Inc()
	m.deliveries.WithLabelValues("sent").Add(float64(sent))
	m.deliveries.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
