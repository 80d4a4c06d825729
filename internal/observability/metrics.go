// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skets-max/Project-473/internal/auth"
)

// Metrics contains the service's custom Prometheus metrics.
type Metrics struct {
	AuthOperations  *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	GuardDecisions  *prometheus.CounterVec
	MailFailures    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neighborwatch_auth_operations_total",
				Help: "Auth operations by operation and outcome kind",
			},
			[]string{"operation", "outcome"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neighborwatch_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neighborwatch_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "neighborwatch_active_sessions",
			Help: "Sessions created minus sessions ended since process start",
		}),
		GuardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neighborwatch_guard_decisions_total",
				Help: "Route guard decisions by reason",
			},
			[]string{"reason"},
		),
		MailFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neighborwatch_mail_failures_total",
				Help: "Mail deliveries that failed by kind",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.AuthOperations,
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveSessions,
		m.GuardDecisions,
		m.MailFailures,
	)
	return m
}

// ObserveAuth counts one auth operation. A nil err counts as "ok".
func (m *Metrics) ObserveAuth(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(auth.KindOf(err))
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveSessionEvent keeps the active session gauge in step with the service.
// Register it with auth.Service.OnSessionChange.
func (m *Metrics) ObserveSessionEvent(ev auth.SessionEvent) {
	switch ev.Type {
	case auth.SessionCreated:
		m.ActiveSessions.Inc()
	case auth.SessionDestroyed, auth.SessionInvalidated:
		m.ActiveSessions.Dec()
	}
}

// CountNotifierFailures wraps n so failed deliveries are counted by kind
// ("verification" or "password_reset"). Errors pass through unchanged.
func (m *Metrics) CountNotifierFailures(n auth.Notifier) auth.Notifier {
	return &countingNotifier{next: n, failures: m.MailFailures}
}

type countingNotifier struct {
	next     auth.Notifier
	failures *prometheus.CounterVec
}

func (c *countingNotifier) SendVerification(ctx context.Context, user auth.Profile, token string) error {
	err := c.next.SendVerification(ctx, user, token)
	if err != nil {
		c.failures.WithLabelValues("verification").Inc()
	}
	return err //nolint:wrapcheck // decorator is transparent
}

func (c *countingNotifier) SendPasswordReset(ctx context.Context, user auth.Profile, token string) error {
	err := c.next.SendPasswordReset(ctx, user, token)
	if err != nil {
		c.failures.WithLabelValues("password_reset").Inc()
	}
	return err //nolint:wrapcheck // decorator is transparent
}
