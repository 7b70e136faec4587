package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rankings      prometheus.Counter
	fetchErrors   prometheus.Counter
	saves         *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regioncost",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regioncost",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rankings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regioncost",
			Name:      "rankings_total",
			Help:      "Region rankings computed.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regioncost",
			Name:      "pricing_fetch_errors_total",
			Help:      "Failed pricing table fetches.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regioncost",
			Name:      "saves_total",
			Help:      "Persisted records by kind and result.",
		}, []string{"kind", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regioncost",
			Name:      "webhook_notifications_total",
			Help:      "Webhook deliveries by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.requests, m.duration, m.rankings, m.fetchErrors, m.saves, m.notifications)
	return m
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Response().Status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return nil
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
